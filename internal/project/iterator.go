package project

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BindingAction is invoked once per (function, topic binding) pair.
type BindingAction func(ctx context.Context, fn *Function, binding *TopicBinding) error

// ForEachTopicBinding walks every function's external topic bindings in
// declaration order and invokes action for each. Iteration continues past
// action errors; all failures are joined into the returned error so one
// function's failure never hides another's.
func ForEachTopicBinding(ctx context.Context, functions map[string]*Function, action BindingAction) error {
	var errs []error
	for _, fn := range functions {
		for _, binding := range fn.TopicBindings() {
			if err := action(ctx, fn, binding); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Reconcile runs action over every (function, topic binding) pair with at
// most limit functions in flight at once. Bindings within one function run
// sequentially in declaration order; functions run independently of each
// other. Errors are collected, not fatal to the batch.
func Reconcile(ctx context.Context, functions map[string]*Function, limit int, action BindingAction) error {
	if limit < 1 {
		limit = 1
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := &errgroup.Group{}
	g.SetLimit(limit)

	for _, fn := range functions {
		bindings := fn.TopicBindings()
		if len(bindings) == 0 {
			continue
		}
		g.Go(func() error {
			for _, binding := range bindings {
				if err := action(ctx, fn, binding); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}
