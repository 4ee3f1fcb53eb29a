package k8s

import (
	"context"
	"errors"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// ErrWaitTimeout indicates a readiness condition was not met in time.
var ErrWaitTimeout = errors.New("timed out waiting for pods to become ready")

// Client wraps Kubernetes client-go for easier interaction
type Client struct {
	clientset kubernetes.Interface
}

// NewClient creates a Kubernetes client from the ambient kubeconfig
// (KUBECONFIG or ~/.kube/config), the same configuration kubectl uses.
func NewClient() (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})

	config, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return &Client{clientset: clientset}, nil
}

// GetNodes retrieves all nodes in the cluster
func (c *Client) GetNodes(ctx context.Context) ([]*Node, error) {
	nodeList, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]*Node, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		nodes = append(nodes, NodeFromCoreV1(&nodeList.Items[i]))
	}

	return nodes, nil
}

// GetPods retrieves pods in the specified namespace, optionally filtered
// by a label selector. An empty selector matches all pods.
func (c *Client) GetPods(ctx context.Context, namespace, selector string) ([]*Pod, error) {
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	pods := make([]*Pod, 0, len(podList.Items))
	for i := range podList.Items {
		pods = append(pods, PodFromCoreV1(&podList.Items[i]))
	}

	return pods, nil
}

// WaitForPodsReady blocks until every pod matching the selector reports
// Ready, at least one pod matches, or the timeout elapses. Transient
// list errors are retried until the deadline.
func (c *Client) WaitForPodsReady(ctx context.Context, namespace, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		ready, err := c.podsReady(ctx, namespace, selector)
		if err == nil && ready {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("pods matching %s in namespace %s: %w", selector, namespace, ErrWaitTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// podsReady reports whether at least one pod matches the selector and
// all matching pods are ready.
func (c *Client) podsReady(ctx context.Context, namespace, selector string) (bool, error) {
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return false, err
	}
	if len(podList.Items) == 0 {
		return false, nil
	}

	for i := range podList.Items {
		if !isPodReady(&podList.Items[i]) {
			return false, nil
		}
	}

	return true, nil
}

// NamespaceExists reports whether the named namespace is present
func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get namespace: %w", err)
	}
	return true, nil
}

// DeleteNamespace removes a namespace and everything in it. Deleting a
// namespace that does not exist is not an error.
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}
	return nil
}
