package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleHTTPClient builds an authorized HTTP client from an OAuth client
// credentials file and a cached token file. Obtaining the initial token is
// out of band (any of the standard gcloud/quickstart flows); the daemon only
// consumes it and relies on the refresh token from then on.
func googleHTTPClient(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) (*http.Client, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(creds, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	tokData, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokData, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}

	return oauthCfg.Client(ctx, &tok), nil
}
