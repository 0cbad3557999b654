package constants

// SNSArnPrefix is the literal prefix topic ARNs are composed from. Region,
// account id, and topic name are appended colon-separated.
const SNSArnPrefix = "arn:aws:sns"

// DefaultProtocol is the subscription protocol used when a topic binding does
// not declare one.
const DefaultProtocol = "lambda"

// SNSServicePrincipal is the principal granted lambda:InvokeFunction in
// compiled permission resources.
const SNSServicePrincipal = "sns.amazonaws.com"

// LambdaInvokeAction is the permission action granted to the topic principal.
const LambdaInvokeAction = "lambda:InvokeFunction"

// DefaultRegion is the fallback region for invoke URL synthesis when the
// deployment region cannot be determined.
const DefaultRegion = "us-east-1"

// PendingSubscriptionMarker appears (in any case) in the subscription ARN of
// a subscription that has not completed its confirmation handshake.
const PendingSubscriptionMarker = "pending"

// PendingConfirmationMarker appears (in any case) in a subscribe response
// whose subscription has not been confirmed yet.
const PendingConfirmationMarker = "pending confirmation"
