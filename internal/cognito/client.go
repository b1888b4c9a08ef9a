package cognito

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hive_schedule/internal/models"

	cognitosrp "github.com/alexrudd/cognito-srp/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// Tokens is a successful authentication result.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// LoginResult carries either tokens or an MFA challenge, never both.
type LoginResult struct {
	Tokens    *Tokens
	Challenge *models.MfaChallenge
}

// Client runs the user-pool auth flows. Every call is unauthenticated,
// so no AWS credentials are configured.
type Client struct {
	api      *cip.Client
	poolID   string
	clientID string
	now      func() time.Time
}

// NewClient targets endpoint, the regional user-pool URL. The region is
// taken from the pool id, e.g. "eu-west-1" for "eu-west-1_SamNfoWtf".
func NewClient(endpoint, poolID, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	region, _, _ := strings.Cut(poolID, "_")
	opts := cip.Options{
		Region:      region,
		HTTPClient:  httpClient,
		Credentials: aws.AnonymousCredentials{},
		// the session manager owns retries
		Retryer: aws.NopRetryer{},
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &Client{
		api:      cip.New(opts),
		poolID:   poolID,
		clientID: clientID,
		now:      time.Now,
	}
}

func tokensFrom(r *types.AuthenticationResultType) *Tokens {
	return &Tokens{
		IDToken:      aws.ToString(r.IdToken),
		AccessToken:  aws.ToString(r.AccessToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		ExpiresIn:    time.Duration(r.ExpiresIn) * time.Second,
	}
}

// Login runs USER_SRP_AUTH. The password never leaves the process.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	csrp, err := cognitosrp.NewCognitoSRP(username, password, c.poolID, c.clientID, nil)
	if err != nil {
		return nil, fmt.Errorf("cognito: srp: %w", err)
	}

	initOut, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserSrpAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: csrp.GetAuthParams(),
	})
	if err != nil {
		return nil, apiError("InitiateAuth", err)
	}
	if initOut.AuthenticationResult != nil {
		return &LoginResult{Tokens: tokensFrom(initOut.AuthenticationResult)}, nil
	}
	if initOut.ChallengeName != types.ChallengeNameTypePasswordVerifier {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChallenge, initOut.ChallengeName)
	}

	responses, err := csrp.PasswordVerifierChallenge(initOut.ChallengeParameters, c.now())
	if err != nil {
		return nil, fmt.Errorf("cognito: password claim: %w", err)
	}
	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypePasswordVerifier,
		ClientId:           aws.String(c.clientID),
		Session:            initOut.Session,
		ChallengeResponses: responses,
	})
	if err != nil {
		return nil, apiError("RespondToAuthChallenge", err)
	}

	userID := initOut.ChallengeParameters["USER_ID_FOR_SRP"]
	if userID == "" {
		userID = username
	}
	switch {
	case out.AuthenticationResult != nil:
		return &LoginResult{Tokens: tokensFrom(out.AuthenticationResult)}, nil
	case out.ChallengeName == types.ChallengeNameTypeSmsMfa, out.ChallengeName == types.ChallengeNameTypeSoftwareTokenMfa:
		return &LoginResult{Challenge: &models.MfaChallenge{
			Name:     string(out.ChallengeName),
			Session:  aws.ToString(out.Session),
			Username: userID,
			Required: true,
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChallenge, out.ChallengeName)
	}
}

// RespondToMFA answers an SMS_MFA or SOFTWARE_TOKEN_MFA challenge.
func (c *Client) RespondToMFA(ctx context.Context, ch models.MfaChallenge, code string) (*Tokens, error) {
	name := types.ChallengeNameType(ch.Name)
	codeKey := "SMS_MFA_CODE"
	if name == types.ChallengeNameTypeSoftwareTokenMfa {
		codeKey = "SOFTWARE_TOKEN_MFA_CODE"
	}

	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName: name,
		ClientId:      aws.String(c.clientID),
		Session:       aws.String(ch.Session),
		ChallengeResponses: map[string]string{
			"USERNAME": ch.Username,
			codeKey:    code,
		},
	})
	if err != nil {
		return nil, apiError("RespondToAuthChallenge", err)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("%w: %s after MFA", ErrUnsupportedChallenge, out.ChallengeName)
	}
	return tokensFrom(out.AuthenticationResult), nil
}

// Refresh runs REFRESH_TOKEN_AUTH. Cognito does not rotate the refresh token,
// so the returned set carries the one passed in.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: map[string]string{"REFRESH_TOKEN": refreshToken},
	})
	if err != nil {
		return nil, apiError("InitiateAuth", err)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("%w: %s on refresh", ErrUnsupportedChallenge, out.ChallengeName)
	}
	t := tokensFrom(out.AuthenticationResult)
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t, nil
}

// apiError turns a service exception into *APIError. Transport and
// context errors are wrapped unchanged.
func apiError(op string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("cognito %s: %w", op, err)
	}
	status := 0
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status = re.HTTPStatusCode()
	}
	return &APIError{Status: status, Type: ae.ErrorCode(), Message: ae.ErrorMessage()}
}
