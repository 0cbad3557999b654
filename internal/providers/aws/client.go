// Package aws implements subscription reconciliation and permission wiring
// against the AWS APIs: SNS for subscriptions, Lambda for function lookup and
// invoke permissions, API Gateway for HTTP endpoints, and CloudFormation for
// applying the compiled permission template.
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SNSClient defines the SNS operations used by the reconciler.
// The interface makes the code easier to test by allowing mock implementations.
type SNSClient interface {
	Subscribe(
		ctx context.Context,
		params *sns.SubscribeInput,
		optFns ...func(*sns.Options),
	) (*sns.SubscribeOutput, error)
	Unsubscribe(
		ctx context.Context,
		params *sns.UnsubscribeInput,
		optFns ...func(*sns.Options),
	) (*sns.UnsubscribeOutput, error)
	ListSubscriptionsByTopic(
		ctx context.Context,
		params *sns.ListSubscriptionsByTopicInput,
		optFns ...func(*sns.Options),
	) (*sns.ListSubscriptionsByTopicOutput, error)
	SetSubscriptionAttributes(
		ctx context.Context,
		params *sns.SetSubscriptionAttributesInput,
		optFns ...func(*sns.Options),
	) (*sns.SetSubscriptionAttributesOutput, error)
}

// LambdaClient defines the Lambda operations used by the resolver and the
// standalone permission wiring.
type LambdaClient interface {
	GetFunction(
		ctx context.Context,
		params *lambda.GetFunctionInput,
		optFns ...func(*lambda.Options),
	) (*lambda.GetFunctionOutput, error)
	AddPermission(
		ctx context.Context,
		params *lambda.AddPermissionInput,
		optFns ...func(*lambda.Options),
	) (*lambda.AddPermissionOutput, error)
	RemovePermission(
		ctx context.Context,
		params *lambda.RemovePermissionInput,
		optFns ...func(*lambda.Options),
	) (*lambda.RemovePermissionOutput, error)
}

// APIGatewayClient defines the API Gateway operations used by the endpoint resolver.
type APIGatewayClient interface {
	GetRestApis(
		ctx context.Context,
		params *apigateway.GetRestApisInput,
		optFns ...func(*apigateway.Options),
	) (*apigateway.GetRestApisOutput, error)
}

// CloudFormationClient defines the CloudFormation operations used to apply
// and remove the permission stack. It satisfies the SDK's DescribeStacks
// waiter client interface.
type CloudFormationClient interface {
	CreateStack(
		ctx context.Context,
		params *cloudformation.CreateStackInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.CreateStackOutput, error)
	UpdateStack(
		ctx context.Context,
		params *cloudformation.UpdateStackInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(
		ctx context.Context,
		params *cloudformation.DeleteStackInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.DeleteStackOutput, error)
	DescribeStacks(
		ctx context.Context,
		params *cloudformation.DescribeStacksInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.DescribeStacksOutput, error)
}

// STSClient defines the STS operations used by the info hook.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// Clients bundles the AWS service clients the provider needs. The concrete
// SDK clients satisfy the interfaces directly; tests substitute mocks.
type Clients struct {
	SNS            SNSClient
	Lambda         LambdaClient
	APIGateway     APIGatewayClient
	CloudFormation CloudFormationClient
	STS            STSClient
	Region         string
}

// NewClients loads the default AWS configuration and constructs the service
// clients. region overrides the environment's default region when non-empty.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfgOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Clients{
		SNS:            sns.NewFromConfig(awsCfg),
		Lambda:         lambda.NewFromConfig(awsCfg),
		APIGateway:     apigateway.NewFromConfig(awsCfg),
		CloudFormation: cloudformation.NewFromConfig(awsCfg),
		STS:            sts.NewFromConfig(awsCfg),
		Region:         awsCfg.Region,
	}, nil
}
