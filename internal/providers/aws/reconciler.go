package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"

	"github.com/topicbind/topicbind/internal/config"
	"github.com/topicbind/topicbind/internal/constants"
	apperrors "github.com/topicbind/topicbind/internal/errors"
	"github.com/topicbind/topicbind/internal/project"
	"github.com/topicbind/topicbind/internal/template"
)

// deliveryPolicyAttribute is the subscription attribute a delivery policy is
// written to.
const deliveryPolicyAttribute = "DeliveryPolicy"

// Reconciler idempotently creates, confirms, and removes subscriptions
// between deployed functions and externally-owned topics.
type Reconciler struct {
	cfg       *config.Config
	clients   *Clients
	resolver  *Resolver
	endpoints *EndpointResolver
	logger    *slog.Logger

	// wait blocks for the pending-confirmation delay; injectable for tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewReconciler wires a reconciler over the given clients.
func NewReconciler(cfg *config.Config, clients *Clients, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		cfg:       cfg,
		clients:   clients,
		resolver:  NewResolver(clients.SNS, clients.Lambda, logger),
		endpoints: NewEndpointResolver(clients.APIGateway, cfg, logger),
		logger:    logger,
		wait:      sleepCtx,
	}
}

// DeployedName returns the function's physical name for the configured stage.
func (r *Reconciler) DeployedName(fn *project.Function) string {
	return fmt.Sprintf("%s-%s", fn.Name, r.cfg.Stage)
}

// Subscribe ensures fn is subscribed to the binding's topic. Existing active
// subscriptions are left alone (the delivery policy is still applied when one
// is requested). A subscribe response that comes back pending confirmation is
// re-resolved after a fixed delay so a requested delivery policy lands on the
// confirmed subscription, not the pending one.
func (r *Reconciler) Subscribe(ctx context.Context, fn *project.Function, binding *project.TopicBinding) error {
	logger := r.logger.With("function", fn.Name, "topic", binding.Topic)

	if r.cfg.NoDeploy {
		logger.Info("no-deploy is set, skipping subscribe")
		return nil
	}

	deployedName := r.DeployedName(fn)
	protocol := binding.EffectiveProtocol()

	// HTTP-triggered functions subscribe via their public invoke URL when a
	// deployed gateway exists; everything else uses the function ARN.
	endpoint, err := r.endpoints.InvokeURL(ctx, fn)
	if err != nil {
		return err
	}

	sub, err := r.resolver.Resolve(ctx, deployedName, binding.Topic, protocol, endpoint)
	if err != nil {
		return err
	}

	if sub.Subscribed() {
		logger.Info("already subscribed", "subscriptionArn", sub.SubscriptionArn)
		if binding.DeliveryPolicy != nil {
			return r.SetDeliveryPolicy(ctx, sub.SubscriptionArn, binding.DeliveryPolicy)
		}
		return nil
	}

	if endpoint == "" {
		endpoint = sub.FunctionArn
	}

	out, err := r.clients.SNS.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: awssdk.String(sub.TopicArn),
		Protocol: awssdk.String(protocol),
		Endpoint: awssdk.String(endpoint),
	})
	if err != nil {
		return apperrors.ErrRemoteOperation("sns:Subscribe",
			fmt.Sprintf("topicArn=%s protocol=%s endpoint=%s", sub.TopicArn, protocol, endpoint), err)
	}
	subscriptionArn := awssdk.ToString(out.SubscriptionArn)

	if strings.Contains(strings.ToLower(subscriptionArn), constants.PendingConfirmationMarker) {
		logger.Info("subscription pending confirmation", "subscriptionArn", subscriptionArn)
		if binding.DeliveryPolicy == nil {
			return nil
		}
		// Lambda-protocol subscriptions confirm on their own shortly after;
		// re-resolve once and apply the policy to the confirmed subscription.
		logger.Info("waiting before applying delivery policy",
			"delay", constants.PendingConfirmationWait)
		if err := r.wait(ctx, constants.PendingConfirmationWait); err != nil {
			return err
		}
		confirmed, err := r.resolver.Resolve(ctx, deployedName, binding.Topic, protocol, endpoint)
		if err != nil {
			return err
		}
		return r.SetDeliveryPolicy(ctx, confirmed.SubscriptionArn, binding.DeliveryPolicy)
	}

	logger.Info("subscribed", "subscriptionArn", subscriptionArn)
	if binding.DeliveryPolicy != nil {
		return r.SetDeliveryPolicy(ctx, subscriptionArn, binding.DeliveryPolicy)
	}
	return nil
}

// Unsubscribe removes fn's subscription to the binding's topic. A missing
// subscription is an idempotent no-op.
func (r *Reconciler) Unsubscribe(ctx context.Context, fn *project.Function, binding *project.TopicBinding) error {
	logger := r.logger.With("function", fn.Name, "topic", binding.Topic)

	if r.cfg.NoDeploy {
		logger.Info("no-deploy is set, skipping unsubscribe")
		return nil
	}

	endpoint, err := r.endpoints.InvokeURL(ctx, fn)
	if err != nil {
		return err
	}

	sub, err := r.resolver.Resolve(ctx, r.DeployedName(fn), binding.Topic, binding.EffectiveProtocol(), endpoint)
	if err != nil {
		return err
	}
	if !sub.Subscribed() {
		logger.Info("not subscribed, nothing to remove")
		return nil
	}

	if _, err := r.clients.SNS.Unsubscribe(ctx, &sns.UnsubscribeInput{
		SubscriptionArn: awssdk.String(sub.SubscriptionArn),
	}); err != nil {
		return apperrors.ErrRemoteOperation("sns:Unsubscribe",
			fmt.Sprintf("subscriptionArn=%s", sub.SubscriptionArn), err)
	}

	logger.Info("unsubscribed", "subscriptionArn", sub.SubscriptionArn)
	return nil
}

// SetDeliveryPolicy applies the retry policy to the subscription. An empty
// subscription ARN is benign: resolution after a pending confirmation can
// legitimately come back empty, and failing would turn a race into an error.
func (r *Reconciler) SetDeliveryPolicy(ctx context.Context, subscriptionArn string, policy map[string]any) error {
	if subscriptionArn == "" {
		r.logger.Info("no subscription to update, skipping delivery policy")
		return nil
	}

	value, err := json.Marshal(map[string]any{"healthyRetryPolicy": policy})
	if err != nil {
		return fmt.Errorf("serializing delivery policy: %w", err)
	}

	if _, err := r.clients.SNS.SetSubscriptionAttributes(ctx, &sns.SetSubscriptionAttributesInput{
		SubscriptionArn: awssdk.String(subscriptionArn),
		AttributeName:   awssdk.String(deliveryPolicyAttribute),
		AttributeValue:  awssdk.String(string(value)),
	}); err != nil {
		return apperrors.ErrRemoteOperation("sns:SetSubscriptionAttributes",
			fmt.Sprintf("subscriptionArn=%s attribute=%s", subscriptionArn, deliveryPolicyAttribute), err)
	}

	r.logger.Info("delivery policy applied", "subscriptionArn", subscriptionArn)
	return nil
}

// EnsurePermission grants the SNS service principal invoke rights on the
// function directly, for standalone subscribe runs where no template deploy
// happens. An already-existing statement is an idempotent no-op.
func (r *Reconciler) EnsurePermission(ctx context.Context, fn *project.Function, binding *project.TopicBinding) error {
	logger := r.logger.With("function", fn.Name, "topic", binding.Topic)

	if r.cfg.NoDeploy {
		logger.Info("no-deploy is set, skipping permission grant")
		return nil
	}

	deployedName := r.DeployedName(fn)
	sub, err := r.resolver.Resolve(ctx, deployedName, binding.Topic, binding.EffectiveProtocol(), "")
	if err != nil {
		return err
	}

	statementID := template.PermissionID(fn.Name, binding.Topic)
	_, err = r.clients.Lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: awssdk.String(deployedName),
		StatementId:  awssdk.String(statementID),
		Action:       awssdk.String(constants.LambdaInvokeAction),
		Principal:    awssdk.String(constants.SNSServicePrincipal),
		SourceArn:    awssdk.String(sub.TopicArn),
	})
	if err != nil {
		if isAPIErrorCode(err, "ResourceConflictException") {
			logger.Debug("invoke permission already present", "statementId", statementID)
			return nil
		}
		return apperrors.ErrRemoteOperation("lambda:AddPermission",
			fmt.Sprintf("function=%s statementId=%s", deployedName, statementID), err)
	}

	logger.Info("invoke permission granted", "statementId", statementID)
	return nil
}

// RemoveInvokePermission revokes the statement EnsurePermission created.
// A missing statement is an idempotent no-op.
func (r *Reconciler) RemoveInvokePermission(ctx context.Context, fn *project.Function, binding *project.TopicBinding) error {
	logger := r.logger.With("function", fn.Name, "topic", binding.Topic)

	if r.cfg.NoDeploy {
		logger.Info("no-deploy is set, skipping permission removal")
		return nil
	}

	deployedName := r.DeployedName(fn)
	statementID := template.PermissionID(fn.Name, binding.Topic)
	_, err := r.clients.Lambda.RemovePermission(ctx, &lambda.RemovePermissionInput{
		FunctionName: awssdk.String(deployedName),
		StatementId:  awssdk.String(statementID),
	})
	if err != nil {
		if isAPIErrorCode(err, "ResourceNotFoundException") {
			logger.Debug("invoke permission already absent", "statementId", statementID)
			return nil
		}
		return apperrors.ErrRemoteOperation("lambda:RemovePermission",
			fmt.Sprintf("function=%s statementId=%s", deployedName, statementID), err)
	}

	logger.Info("invoke permission removed", "statementId", statementID)
	return nil
}

// isAPIErrorCode reports whether err is an AWS API error with the given code.
func isAPIErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}

// sleepCtx blocks for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
