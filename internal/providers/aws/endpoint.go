package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"

	"github.com/topicbind/topicbind/internal/config"
	"github.com/topicbind/topicbind/internal/constants"
	apperrors "github.com/topicbind/topicbind/internal/errors"
	"github.com/topicbind/topicbind/internal/project"
)

// EndpointResolver computes the public invoke URL for HTTP-triggered
// functions. The URL is used as the subscription endpoint instead of the
// function ARN when the deployment's gateway is live.
type EndpointResolver struct {
	apigw  APIGatewayClient
	cfg    *config.Config
	logger *slog.Logger
}

// NewEndpointResolver creates an endpoint resolver over the given client.
func NewEndpointResolver(apigw APIGatewayClient, cfg *config.Config, logger *slog.Logger) *EndpointResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &EndpointResolver{apigw: apigw, cfg: cfg, logger: logger}
}

// InvokeURL returns the function's public invoke URL, or "" when the function
// has no HTTP trigger or no deployed gateway matches the naming convention.
// Callers fall back to the function ARN on "".
func (e *EndpointResolver) InvokeURL(ctx context.Context, fn *project.Function) (string, error) {
	trigger := fn.FirstHTTPTrigger()
	if trigger == nil || trigger.Path == "" {
		return "", nil
	}

	apiID, err := e.findGateway(ctx, e.cfg.GatewayName())
	if err != nil {
		return "", err
	}
	if apiID == "" {
		e.logger.Debug("no deployed gateway, falling back to function ARN",
			"function", fn.Name, "gateway", e.cfg.GatewayName())
		return "", nil
	}

	region := e.cfg.Region
	if region == "" {
		region = constants.DefaultRegion
	}

	url := fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s/%s",
		apiID, region, e.cfg.Stage, strings.TrimPrefix(trigger.Path, "/"))
	e.logger.Debug("resolved invoke URL", "function", fn.Name, "url", url)
	return url, nil
}

// findGateway returns the id of the deployed REST API with the given name,
// or "" when none matches.
func (e *EndpointResolver) findGateway(ctx context.Context, name string) (string, error) {
	paginator := apigateway.NewGetRestApisPaginator(e.apigw, &apigateway.GetRestApisInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", apperrors.ErrRemoteOperation("apigateway:GetRestApis",
				fmt.Sprintf("gateway=%s", name), err)
		}
		for _, api := range page.Items {
			if awssdk.ToString(api.Name) == name {
				return awssdk.ToString(api.Id), nil
			}
		}
	}
	return "", nil
}
