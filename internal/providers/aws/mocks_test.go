package aws

import (
	"context"
	"fmt"
	"strconv"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfnTypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdaTypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// mockSNS is an in-memory SNSClient with error injection and call tracking.
// Listing serves either perCallSubs (one single-page result popped per call)
// or pagedSubs (one multi-page result navigated via NextToken).
type mockSNS struct {
	perCallSubs [][]snsTypes.Subscription
	pagedSubs   [][]snsTypes.Subscription
	listErr     error
	listCalls   int

	subscribeArn string
	subscribeErr error
	subscribeIn  []*sns.SubscribeInput

	unsubscribeErr error
	unsubscribeIn  []*sns.UnsubscribeInput

	setAttrErr error
	setAttrIn  []*sns.SetSubscriptionAttributesInput
}

func (m *mockSNS) ListSubscriptionsByTopic(
	_ context.Context,
	params *sns.ListSubscriptionsByTopicInput,
	_ ...func(*sns.Options),
) (*sns.ListSubscriptionsByTopicOutput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	if m.pagedSubs != nil {
		idx := 0
		if params.NextToken != nil {
			idx, _ = strconv.Atoi(*params.NextToken)
		}
		out := &sns.ListSubscriptionsByTopicOutput{Subscriptions: m.pagedSubs[idx]}
		if idx+1 < len(m.pagedSubs) {
			out.NextToken = awssdk.String(strconv.Itoa(idx + 1))
		}
		if params.NextToken == nil {
			m.listCalls++
		}
		return out, nil
	}

	m.listCalls++
	var subs []snsTypes.Subscription
	if len(m.perCallSubs) > 0 {
		subs = m.perCallSubs[0]
		if len(m.perCallSubs) > 1 {
			m.perCallSubs = m.perCallSubs[1:]
		}
	}
	return &sns.ListSubscriptionsByTopicOutput{Subscriptions: subs}, nil
}

func (m *mockSNS) Subscribe(
	_ context.Context,
	params *sns.SubscribeInput,
	_ ...func(*sns.Options),
) (*sns.SubscribeOutput, error) {
	m.subscribeIn = append(m.subscribeIn, params)
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	return &sns.SubscribeOutput{SubscriptionArn: awssdk.String(m.subscribeArn)}, nil
}

func (m *mockSNS) Unsubscribe(
	_ context.Context,
	params *sns.UnsubscribeInput,
	_ ...func(*sns.Options),
) (*sns.UnsubscribeOutput, error) {
	m.unsubscribeIn = append(m.unsubscribeIn, params)
	if m.unsubscribeErr != nil {
		return nil, m.unsubscribeErr
	}
	return &sns.UnsubscribeOutput{}, nil
}

func (m *mockSNS) SetSubscriptionAttributes(
	_ context.Context,
	params *sns.SetSubscriptionAttributesInput,
	_ ...func(*sns.Options),
) (*sns.SetSubscriptionAttributesOutput, error) {
	m.setAttrIn = append(m.setAttrIn, params)
	if m.setAttrErr != nil {
		return nil, m.setAttrErr
	}
	return &sns.SetSubscriptionAttributesOutput{}, nil
}

// mockLambda resolves function ARNs from a name→ARN map.
type mockLambda struct {
	functionArns map[string]string
	getErr       error
	getCalls     int

	addPermissionErr error
	addPermissionIn  []*lambda.AddPermissionInput

	removePermissionErr error
	removePermissionIn  []*lambda.RemovePermissionInput
}

func (m *mockLambda) GetFunction(
	_ context.Context,
	params *lambda.GetFunctionInput,
	_ ...func(*lambda.Options),
) (*lambda.GetFunctionOutput, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	arn, ok := m.functionArns[awssdk.ToString(params.FunctionName)]
	if !ok {
		return nil, fmt.Errorf("function not found: %s", awssdk.ToString(params.FunctionName))
	}
	return &lambda.GetFunctionOutput{
		Configuration: &lambdaTypes.FunctionConfiguration{FunctionArn: awssdk.String(arn)},
	}, nil
}

func (m *mockLambda) AddPermission(
	_ context.Context,
	params *lambda.AddPermissionInput,
	_ ...func(*lambda.Options),
) (*lambda.AddPermissionOutput, error) {
	m.addPermissionIn = append(m.addPermissionIn, params)
	if m.addPermissionErr != nil {
		return nil, m.addPermissionErr
	}
	return &lambda.AddPermissionOutput{}, nil
}

func (m *mockLambda) RemovePermission(
	_ context.Context,
	params *lambda.RemovePermissionInput,
	_ ...func(*lambda.Options),
) (*lambda.RemovePermissionOutput, error) {
	m.removePermissionIn = append(m.removePermissionIn, params)
	if m.removePermissionErr != nil {
		return nil, m.removePermissionErr
	}
	return &lambda.RemovePermissionOutput{}, nil
}

// mockAPIGateway serves a single page of REST APIs.
type mockAPIGateway struct {
	apis     []apigwTypes.RestApi
	getErr   error
	getCalls int
}

func (m *mockAPIGateway) GetRestApis(
	_ context.Context,
	_ *apigateway.GetRestApisInput,
	_ ...func(*apigateway.Options),
) (*apigateway.GetRestApisOutput, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &apigateway.GetRestApisOutput{Items: m.apis}, nil
}

// describeResult is one queued DescribeStacks response.
type describeResult struct {
	status cfnTypes.StackStatus
	err    error
}

// mockCloudFormation pops queued describe results; the last one repeats.
type mockCloudFormation struct {
	describeResults []describeResult

	createErr error
	createIn  []*cloudformation.CreateStackInput

	updateErr error
	updateIn  []*cloudformation.UpdateStackInput

	deleteErr error
	deleteIn  []*cloudformation.DeleteStackInput
}

func (m *mockCloudFormation) DescribeStacks(
	_ context.Context,
	params *cloudformation.DescribeStacksInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.DescribeStacksOutput, error) {
	if len(m.describeResults) == 0 {
		return nil, fmt.Errorf("Stack with id %s does not exist", awssdk.ToString(params.StackName))
	}
	r := m.describeResults[0]
	if len(m.describeResults) > 1 {
		m.describeResults = m.describeResults[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &cloudformation.DescribeStacksOutput{
		Stacks: []cfnTypes.Stack{{
			StackName:   params.StackName,
			StackStatus: r.status,
		}},
	}, nil
}

func (m *mockCloudFormation) CreateStack(
	_ context.Context,
	params *cloudformation.CreateStackInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.CreateStackOutput, error) {
	m.createIn = append(m.createIn, params)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &cloudformation.CreateStackOutput{StackId: params.StackName}, nil
}

func (m *mockCloudFormation) UpdateStack(
	_ context.Context,
	params *cloudformation.UpdateStackInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.UpdateStackOutput, error) {
	m.updateIn = append(m.updateIn, params)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &cloudformation.UpdateStackOutput{StackId: params.StackName}, nil
}

func (m *mockCloudFormation) DeleteStack(
	_ context.Context,
	params *cloudformation.DeleteStackInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.DeleteStackOutput, error) {
	m.deleteIn = append(m.deleteIn, params)
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &cloudformation.DeleteStackOutput{}, nil
}

// mockSTS returns a fixed caller identity.
type mockSTS struct {
	account string
	arn     string
	err     error
}

func (m *mockSTS) GetCallerIdentity(
	_ context.Context,
	_ *sts.GetCallerIdentityInput,
	_ ...func(*sts.Options),
) (*sts.GetCallerIdentityOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: awssdk.String(m.account),
		Arn:     awssdk.String(m.arn),
	}, nil
}
