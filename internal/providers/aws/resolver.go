package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/topicbind/topicbind/internal/constants"
	apperrors "github.com/topicbind/topicbind/internal/errors"
)

// Subscription is the resolved linkage state between a function and a topic.
// An empty SubscriptionArn means the function is not currently subscribed.
type Subscription struct {
	FunctionArn     string
	TopicArn        string
	SubscriptionArn string
	Endpoint        string
}

// Subscribed reports whether an active subscription was found.
func (s *Subscription) Subscribed() bool {
	return s.SubscriptionArn != ""
}

// Resolver derives canonical ARNs for a (function, topic) pair and queries
// the topic's existing subscriptions to determine current linkage state.
type Resolver struct {
	sns    SNSClient
	lambda LambdaClient
	logger *slog.Logger
}

// NewResolver creates a resolver over the given clients.
func NewResolver(snsClient SNSClient, lambdaClient LambdaClient, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sns: snsClient, lambda: lambdaClient, logger: logger}
}

// Resolve fetches the function's live ARN, composes the topic ARN from its
// region and account fragments, and selects the matching active subscription.
// protocol defaults to "lambda"; endpoint defaults to the function ARN.
// Subscriptions whose ARN contains "pending" are treated as not yet active.
func (r *Resolver) Resolve(ctx context.Context, functionName, topicName, protocol, endpoint string) (*Subscription, error) {
	if protocol == "" {
		protocol = constants.DefaultProtocol
	}

	fnOut, err := r.lambda.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: awssdk.String(functionName),
	})
	if err != nil {
		return nil, apperrors.ErrRemoteOperation("lambda:GetFunction",
			fmt.Sprintf("function=%s", functionName), err)
	}
	functionArn := awssdk.ToString(fnOut.Configuration.FunctionArn)

	region, accountID, err := arnFragments(functionArn)
	if err != nil {
		return nil, err
	}
	topicArn := fmt.Sprintf("%s:%s:%s:%s", constants.SNSArnPrefix, region, accountID, topicName)

	if endpoint == "" {
		endpoint = functionArn
	}

	result := &Subscription{
		FunctionArn: functionArn,
		TopicArn:    topicArn,
	}

	paginator := sns.NewListSubscriptionsByTopicPaginator(r.sns, &sns.ListSubscriptionsByTopicInput{
		TopicArn: awssdk.String(topicArn),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.ErrRemoteOperation("sns:ListSubscriptionsByTopic",
				fmt.Sprintf("topicArn=%s", topicArn), err)
		}
		for _, sub := range page.Subscriptions {
			subArn := awssdk.ToString(sub.SubscriptionArn)
			if strings.Contains(strings.ToLower(subArn), constants.PendingSubscriptionMarker) {
				continue
			}
			// Both protocol and endpoint must match the requested linkage.
			if awssdk.ToString(sub.Protocol) != protocol {
				continue
			}
			if awssdk.ToString(sub.Endpoint) != endpoint {
				continue
			}
			result.SubscriptionArn = subArn
			result.Endpoint = awssdk.ToString(sub.Endpoint)
			r.logger.Debug("found existing subscription",
				"function", functionName,
				"topic", topicName,
				"subscriptionArn", subArn)
			return result, nil
		}
	}

	r.logger.Debug("no existing subscription",
		"function", functionName,
		"topic", topicName,
		"topicArn", topicArn)
	return result, nil
}

// arnFragments extracts the region and account id from their fixed
// colon-delimited positions in a Lambda function ARN.
func arnFragments(arn string) (region, accountID string, err error) {
	parts := strings.Split(arn, ":")
	if len(parts) < 6 {
		return "", "", apperrors.ErrInvalidBinding(
			fmt.Sprintf("malformed function ARN %q", arn), nil)
	}
	return parts[3], parts[4], nil
}
