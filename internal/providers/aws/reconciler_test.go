package aws

import (
	"context"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicbind/topicbind/internal/config"
	"github.com/topicbind/topicbind/internal/constants"
	"github.com/topicbind/topicbind/internal/project"
)

func testConfig() *config.Config {
	return &config.Config{
		Service:     "shop",
		Stage:       "dev",
		Region:      "us-east-1",
		Concurrency: 1,
	}
}

func newTestReconciler(cfg *config.Config, snsMock *mockSNS, lambdaMock *mockLambda, apigwMock *mockAPIGateway) *Reconciler {
	r := NewReconciler(cfg, &Clients{
		SNS:        snsMock,
		Lambda:     lambdaMock,
		APIGateway: apigwMock,
		Region:     cfg.Region,
	}, testLogger())
	r.wait = func(context.Context, time.Duration) error { return nil }
	return r
}

func notifyFunction() *project.Function {
	return &project.Function{Name: "notify"}
}

func ordersBinding() *project.TopicBinding {
	return &project.TopicBinding{Topic: "orders"}
}

func TestDeployedNameIncludesStage(t *testing.T) {
	r := newTestReconciler(testConfig(), &mockSNS{}, &mockLambda{}, &mockAPIGateway{})
	assert.Equal(t, "notify-dev", r.DeployedName(notifyFunction()))
}

func TestSubscribeCreatesSubscription(t *testing.T) {
	snsMock := &mockSNS{subscribeArn: testTopicArn + ":6b0e71bd"}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	err := r.Subscribe(context.Background(), notifyFunction(), ordersBinding())
	require.NoError(t, err)

	require.Len(t, snsMock.subscribeIn, 1)
	in := snsMock.subscribeIn[0]
	assert.Equal(t, testTopicArn, awssdk.ToString(in.TopicArn))
	assert.Equal(t, "lambda", awssdk.ToString(in.Protocol))
	assert.Equal(t, testFunctionArn, awssdk.ToString(in.Endpoint))
	assert.Empty(t, snsMock.setAttrIn, "no delivery policy requested")
}

func TestSubscribeIsIdempotent(t *testing.T) {
	snsMock := &mockSNS{perCallSubs: [][]snsTypes.Subscription{{
		activeSubscription(testTopicArn+":6b0e71bd", "lambda", testFunctionArn),
	}}}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	err := r.Subscribe(context.Background(), notifyFunction(), ordersBinding())
	require.NoError(t, err)
	assert.Empty(t, snsMock.subscribeIn, "an active subscription must not be recreated")
}

func TestSubscribeAppliesDeliveryPolicyToExistingSubscription(t *testing.T) {
	snsMock := &mockSNS{perCallSubs: [][]snsTypes.Subscription{{
		activeSubscription(testTopicArn+":6b0e71bd", "lambda", testFunctionArn),
	}}}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	binding := &project.TopicBinding{
		Topic:          "orders",
		DeliveryPolicy: map[string]any{"numRetries": 3, "minDelayTarget": 10},
	}
	require.NoError(t, r.Subscribe(context.Background(), notifyFunction(), binding))

	assert.Empty(t, snsMock.subscribeIn)
	require.Len(t, snsMock.setAttrIn, 1)
	attr := snsMock.setAttrIn[0]
	assert.Equal(t, testTopicArn+":6b0e71bd", awssdk.ToString(attr.SubscriptionArn))
	assert.Equal(t, "DeliveryPolicy", awssdk.ToString(attr.AttributeName))
	assert.JSONEq(t,
		`{"healthyRetryPolicy":{"numRetries":3,"minDelayTarget":10}}`,
		awssdk.ToString(attr.AttributeValue))
}

func TestSubscribePendingConfirmationDefersDeliveryPolicy(t *testing.T) {
	confirmedArn := testTopicArn + ":confirmed"
	snsMock := &mockSNS{
		subscribeArn: "pending confirmation",
		perCallSubs: [][]snsTypes.Subscription{
			nil, // initial resolve: nothing subscribed yet
			{activeSubscription(confirmedArn, "lambda", testFunctionArn)},
		},
	}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	var waited time.Duration
	r.wait = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	binding := &project.TopicBinding{
		Topic:          "orders",
		DeliveryPolicy: map[string]any{"numRetries": 5},
	}
	require.NoError(t, r.Subscribe(context.Background(), notifyFunction(), binding))

	assert.Equal(t, constants.PendingConfirmationWait, waited)
	assert.Equal(t, 2, snsMock.listCalls, "must re-resolve after the confirmation wait")
	require.Len(t, snsMock.setAttrIn, 1)
	assert.Equal(t, confirmedArn, awssdk.ToString(snsMock.setAttrIn[0].SubscriptionArn),
		"the policy must land on the confirmed subscription, not the pending marker")
}

func TestSubscribePendingConfirmationWithoutPolicySkipsWait(t *testing.T) {
	snsMock := &mockSNS{subscribeArn: "pending confirmation"}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	waitCalled := false
	r.wait = func(context.Context, time.Duration) error {
		waitCalled = true
		return nil
	}

	require.NoError(t, r.Subscribe(context.Background(), notifyFunction(), ordersBinding()))
	assert.False(t, waitCalled)
	assert.Empty(t, snsMock.setAttrIn)
}

func TestSubscribeUsesInvokeURLForHTTPFunctions(t *testing.T) {
	apigwMock := &mockAPIGateway{apis: []apigwTypes.RestApi{
		{Id: awssdk.String("abc123"), Name: awssdk.String("dev-shop")},
	}}
	snsMock := &mockSNS{subscribeArn: testTopicArn + ":6b0e71bd"}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, apigwMock)

	fn := &project.Function{
		Name:   "notify",
		Events: []project.Event{{HTTP: &project.HTTPTrigger{Path: "/notify", Method: "post"}}},
	}
	binding := &project.TopicBinding{Topic: "orders", Protocol: "https"}
	require.NoError(t, r.Subscribe(context.Background(), fn, binding))

	require.Len(t, snsMock.subscribeIn, 1)
	in := snsMock.subscribeIn[0]
	assert.Equal(t, "https", awssdk.ToString(in.Protocol))
	assert.Equal(t, "https://abc123.execute-api.us-east-1.amazonaws.com/dev/notify",
		awssdk.ToString(in.Endpoint))
}

func TestSubscribeNoDeployMakesNoRemoteCalls(t *testing.T) {
	cfg := testConfig()
	cfg.NoDeploy = true
	snsMock := &mockSNS{}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(cfg, snsMock, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.Subscribe(context.Background(), notifyFunction(), ordersBinding()))
	assert.Zero(t, lambdaMock.getCalls)
	assert.Zero(t, snsMock.listCalls)
	assert.Empty(t, snsMock.subscribeIn)
}

func TestUnsubscribeRemovesSubscription(t *testing.T) {
	snsMock := &mockSNS{perCallSubs: [][]snsTypes.Subscription{{
		activeSubscription(testTopicArn+":6b0e71bd", "lambda", testFunctionArn),
	}}}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.Unsubscribe(context.Background(), notifyFunction(), ordersBinding()))

	require.Len(t, snsMock.unsubscribeIn, 1)
	assert.Equal(t, testTopicArn+":6b0e71bd", awssdk.ToString(snsMock.unsubscribeIn[0].SubscriptionArn))
}

func TestUnsubscribeWithoutSubscriptionIsNoop(t *testing.T) {
	snsMock := &mockSNS{}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.Unsubscribe(context.Background(), notifyFunction(), ordersBinding()))
	assert.Empty(t, snsMock.unsubscribeIn)
}

func TestSetDeliveryPolicyEmptyArnIsNoop(t *testing.T) {
	snsMock := &mockSNS{}
	r := newTestReconciler(testConfig(), snsMock, &mockLambda{}, &mockAPIGateway{})

	require.NoError(t, r.SetDeliveryPolicy(context.Background(), "", map[string]any{"numRetries": 3}))
	assert.Empty(t, snsMock.setAttrIn)
}

func TestEnsurePermissionGrantsInvoke(t *testing.T) {
	snsMock := &mockSNS{}
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.EnsurePermission(context.Background(), notifyFunction(), ordersBinding()))

	require.Len(t, lambdaMock.addPermissionIn, 1)
	in := lambdaMock.addPermissionIn[0]
	assert.Equal(t, "notify-dev", awssdk.ToString(in.FunctionName))
	assert.Equal(t, "NotifyLambdaPermissionOrders", awssdk.ToString(in.StatementId))
	assert.Equal(t, "lambda:InvokeFunction", awssdk.ToString(in.Action))
	assert.Equal(t, "sns.amazonaws.com", awssdk.ToString(in.Principal))
	assert.Equal(t, testTopicArn, awssdk.ToString(in.SourceArn))
}

func TestEnsurePermissionToleratesExistingStatement(t *testing.T) {
	snsMock := &mockSNS{}
	lambdaMock := &mockLambda{
		functionArns:     map[string]string{"notify-dev": testFunctionArn},
		addPermissionErr: &smithy.GenericAPIError{Code: "ResourceConflictException", Message: "statement exists"},
	}
	r := newTestReconciler(testConfig(), snsMock, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.EnsurePermission(context.Background(), notifyFunction(), ordersBinding()))
}

func TestRemoveInvokePermission(t *testing.T) {
	lambdaMock := &mockLambda{functionArns: map[string]string{"notify-dev": testFunctionArn}}
	r := newTestReconciler(testConfig(), &mockSNS{}, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.RemoveInvokePermission(context.Background(), notifyFunction(), ordersBinding()))

	require.Len(t, lambdaMock.removePermissionIn, 1)
	in := lambdaMock.removePermissionIn[0]
	assert.Equal(t, "notify-dev", awssdk.ToString(in.FunctionName))
	assert.Equal(t, "NotifyLambdaPermissionOrders", awssdk.ToString(in.StatementId))
}

func TestRemoveInvokePermissionToleratesMissingStatement(t *testing.T) {
	lambdaMock := &mockLambda{
		functionArns:        map[string]string{"notify-dev": testFunctionArn},
		removePermissionErr: &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such statement"},
	}
	r := newTestReconciler(testConfig(), &mockSNS{}, lambdaMock, &mockAPIGateway{})

	require.NoError(t, r.RemoveInvokePermission(context.Background(), notifyFunction(), ordersBinding()))
}
