// Package secrets loads verify service configuration from the Google Cloud
// Secret Manager.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/googleapis/gax-go"
	"google.golang.org/api/iterator"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1"
)

// SecretClient wraps the AccessSecretVersion function provided by the
// secretmanager.Client.
type SecretClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecretVersions(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest, opts ...gax.CallOption) *secretmanager.SecretVersionIterator
}

// iter wraps the Next() method of a *secretmanager.SecretVersionIterator.
type iter interface {
	Next(it *secretmanager.SecretVersionIterator) (*secretmanagerpb.SecretVersion, error)
}

// stdIter implements the iter interface, and is used to invoke the
// iterator.Next() method.
type stdIter struct{}

// Next invokes the Next() method of a *secretmanager.SecretVersionIterator.
func (s *stdIter) Next(it *secretmanager.SecretVersionIterator) (*secretmanagerpb.SecretVersion, error) {
	return it.Next()
}

// Config identifies one secret within a project.
type Config struct {
	iter    iter
	Name    string
	Project string
}

// NewConfig creates a new secret config for the named secret.
func NewConfig(project, name string) *Config {
	return &Config{
		iter:    &stdIter{},
		Name:    name,
		Project: project,
	}
}

// ServiceAccount holds the structured fields of a service-account key that
// the billing backend needs for signing requests.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// getSecret fetches the version of a secret specified by 'path' from the
// Secret Manager API.
func (c *Config) getSecret(ctx context.Context, client SecretClient, path string) ([]byte, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: path,
	}

	result, err := client.AccessSecretVersion(ctx, req)
	if err != nil {
		return nil, err
	}

	return result.Payload.Data, nil
}

// getSecretVersions returns a slice of all *enabled* versions for a secret. It
// will ignore disabled or destroyed versions of a secret.
func (c *Config) getSecretVersions(ctx context.Context, client SecretClient) ([]string, error) {
	req := &secretmanagerpb.ListSecretVersionsRequest{
		Parent:   c.path(),
		PageSize: 1000,
	}

	it := client.ListSecretVersions(ctx, req)
	versions := []string{}
	for {
		resp, err := c.iter.Next(it)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if resp.State != secretmanagerpb.SecretVersion_ENABLED {
			continue
		}
		versions = append(versions, resp.Name)
	}

	if len(versions) < 1 {
		return nil, fmt.Errorf("no versions found for secret: %s", c.Name)
	}

	return versions, nil
}

// LoadLatest fetches the newest enabled version of the named secret. The API
// lists versions newest first.
func (c *Config) LoadLatest(ctx context.Context, client SecretClient) ([]byte, error) {
	versions, err := c.getSecretVersions(ctx, client)
	if err != nil {
		return nil, err
	}
	log.Printf("Loading secret %v", versions[0])
	return c.getSecret(ctx, client, versions[0])
}

// ParseServiceAccount parses raw key material into a ServiceAccount. The
// client email and private key are required for signing backend requests.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	sa := &ServiceAccount{}
	if err := json.Unmarshal(data, sa); err != nil {
		return nil, fmt.Errorf("service account is not valid JSON: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account is missing client_email or private_key")
	}
	return sa, nil
}

func (c *Config) path() string {
	return "projects/" + c.Project + "/secrets/" + c.Name
}
