package project

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoFunctionFixture() map[string]*Function {
	return map[string]*Function{
		"notify": {
			Name: "notify",
			Events: []Event{
				{ExternalSNS: &TopicBinding{Topic: "orders"}},
				{ExternalSNS: &TopicBinding{Topic: "refunds"}},
			},
		},
		"audit": {
			Name: "audit",
			Events: []Event{
				{ExternalSNS: &TopicBinding{Topic: "orders"}},
				{HTTP: &HTTPTrigger{Path: "/audit"}},
			},
		},
		"web": {
			Name:   "web",
			Events: []Event{{HTTP: &HTTPTrigger{Path: "/"}}},
		},
	}
}

func TestForEachTopicBindingVisitsEveryBinding(t *testing.T) {
	var visited []string
	err := ForEachTopicBinding(context.Background(), twoFunctionFixture(),
		func(_ context.Context, fn *Function, binding *TopicBinding) error {
			visited = append(visited, fn.Name+"/"+binding.Topic)
			return nil
		})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notify/orders", "notify/refunds", "audit/orders"}, visited)
}

func TestForEachTopicBindingContinuesPastErrors(t *testing.T) {
	failOrders := errors.New("orders failed")
	var visited int

	err := ForEachTopicBinding(context.Background(), twoFunctionFixture(),
		func(_ context.Context, fn *Function, binding *TopicBinding) error {
			visited++
			if binding.Topic == "orders" {
				return failOrders
			}
			return nil
		})

	require.Error(t, err)
	assert.Equal(t, 3, visited, "iteration must not stop at the first failure")
	assert.ErrorIs(t, err, failOrders)
}

func TestReconcileVisitsAllPairsAndCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	var (
		mu      sync.Mutex
		visited []string
	)

	err := Reconcile(context.Background(), twoFunctionFixture(), 2,
		func(_ context.Context, fn *Function, binding *TopicBinding) error {
			mu.Lock()
			visited = append(visited, fn.Name+"/"+binding.Topic)
			mu.Unlock()
			if fn.Name == "audit" {
				return boom
			}
			return nil
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ElementsMatch(t, []string{"notify/orders", "notify/refunds", "audit/orders"}, visited)
}

func TestReconcilePreservesOrderWithinFunction(t *testing.T) {
	functions := map[string]*Function{
		"fanout": {
			Name: "fanout",
			Events: []Event{
				{ExternalSNS: &TopicBinding{Topic: "a"}},
				{ExternalSNS: &TopicBinding{Topic: "b"}},
				{ExternalSNS: &TopicBinding{Topic: "c"}},
			},
		},
	}

	var order []string
	err := Reconcile(context.Background(), functions, 4,
		func(_ context.Context, _ *Function, binding *TopicBinding) error {
			order = append(order, binding.Topic)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestReconcileNoBindingsIsNoop(t *testing.T) {
	functions := map[string]*Function{
		"web": {Name: "web", Events: []Event{{HTTP: &HTTPTrigger{Path: "/"}}}},
	}

	err := Reconcile(context.Background(), functions, 1,
		func(_ context.Context, _ *Function, _ *TopicBinding) error {
			t.Fatal("action must not be invoked")
			return nil
		})
	require.NoError(t, err)
}
