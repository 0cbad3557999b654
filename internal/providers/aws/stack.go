package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfnTypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/topicbind/topicbind/internal/constants"
	apperrors "github.com/topicbind/topicbind/internal/errors"
)

// PermissionStack applies and removes the compiled permission template as a
// CloudFormation stack.
type PermissionStack struct {
	cfn    CloudFormationClient
	logger *slog.Logger
}

// NewPermissionStack creates a stack manager over the given client.
func NewPermissionStack(cfn CloudFormationClient, logger *slog.Logger) *PermissionStack {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionStack{cfn: cfn, logger: logger}
}

// Apply creates the stack or updates it when it already exists, waiting for
// the operation to settle. An update with no changes is a no-op.
func (p *PermissionStack) Apply(ctx context.Context, stackName, body string) error {
	exists, err := p.stackExists(ctx, stackName)
	if err != nil {
		return err
	}

	tags := []cfnTypes.Tag{
		{Key: awssdk.String("ManagedBy"), Value: awssdk.String(constants.ProjectName)},
	}

	if !exists {
		p.logger.Info("creating permission stack", "stack", stackName)
		_, err := p.cfn.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    awssdk.String(stackName),
			TemplateBody: awssdk.String(body),
			Tags:         tags,
		})
		if err != nil {
			return apperrors.ErrRemoteOperation("cloudformation:CreateStack",
				fmt.Sprintf("stack=%s", stackName), err)
		}

		waiter := cloudformation.NewStackCreateCompleteWaiter(p.cfn)
		if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{
			StackName: awssdk.String(stackName),
		}, maxWaitForContext(ctx)); err != nil {
			return apperrors.ErrRemoteOperation("cloudformation:CreateStack",
				fmt.Sprintf("stack=%s wait failed", stackName), err)
		}
		p.logger.Info("permission stack created", "stack", stackName)
		return nil
	}

	p.logger.Info("updating permission stack", "stack", stackName)
	_, err = p.cfn.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:    awssdk.String(stackName),
		TemplateBody: awssdk.String(body),
		Tags:         tags,
	})
	if err != nil {
		// CloudFormation rejects no-change updates with a validation error.
		if strings.Contains(err.Error(), "No updates are to be performed") {
			p.logger.Info("permission stack unchanged", "stack", stackName)
			return nil
		}
		return apperrors.ErrRemoteOperation("cloudformation:UpdateStack",
			fmt.Sprintf("stack=%s", stackName), err)
	}

	waiter := cloudformation.NewStackUpdateCompleteWaiter(p.cfn)
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{
		StackName: awssdk.String(stackName),
	}, maxWaitForContext(ctx)); err != nil {
		return apperrors.ErrRemoteOperation("cloudformation:UpdateStack",
			fmt.Sprintf("stack=%s wait failed", stackName), err)
	}
	p.logger.Info("permission stack updated", "stack", stackName)
	return nil
}

// Delete removes the stack and waits for deletion to complete. A stack that
// does not exist is an idempotent no-op.
func (p *PermissionStack) Delete(ctx context.Context, stackName string) error {
	exists, err := p.stackExists(ctx, stackName)
	if err != nil {
		return err
	}
	if !exists {
		p.logger.Info("permission stack already absent", "stack", stackName)
		return nil
	}

	p.logger.Info("deleting permission stack", "stack", stackName)
	if _, err := p.cfn.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: awssdk.String(stackName),
	}); err != nil {
		return apperrors.ErrRemoteOperation("cloudformation:DeleteStack",
			fmt.Sprintf("stack=%s", stackName), err)
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(p.cfn)
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{
		StackName: awssdk.String(stackName),
	}, maxWaitForContext(ctx)); err != nil {
		return apperrors.ErrRemoteOperation("cloudformation:DeleteStack",
			fmt.Sprintf("stack=%s wait failed", stackName), err)
	}
	p.logger.Info("permission stack deleted", "stack", stackName)
	return nil
}

// stackExists reports whether the stack currently exists. DescribeStacks on a
// missing stack returns a validation error naming it.
func (p *PermissionStack) stackExists(ctx context.Context, stackName string) (bool, error) {
	_, err := p.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: awssdk.String(stackName),
	})
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return false, nil
		}
		return false, apperrors.ErrRemoteOperation("cloudformation:DescribeStacks",
			fmt.Sprintf("stack=%s", stackName), err)
	}
	return true, nil
}

// maxWaitForContext derives a waiter duration from the context deadline,
// leaving a margin so the waiter gives up before the context does.
func maxWaitForContext(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline) - constants.StackWaitDeadlineMargin
	}
	return constants.DefaultStackMaxWait
}
