package constants

import "time"

// PendingConfirmationWait is how long to wait before re-resolving a
// subscription whose subscribe response came back pending confirmation.
const PendingConfirmationWait = 10 * time.Second

// DefaultStackMaxWait bounds CloudFormation waiter durations when the
// context carries no deadline.
const DefaultStackMaxWait = 15 * time.Minute

// StackWaitDeadlineMargin is subtracted from a context deadline when deriving
// a CloudFormation waiter duration, so the waiter gives up before the context does.
const StackWaitDeadlineMargin = 10 * time.Second
