// Package idp answers user existence questions against the identity provider
// that issues the server's JWTs.
package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// Config describes the user pool and how to reach it.
type Config struct {
	UserPoolID      string
	Region          string // derived from UserPoolID when empty
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// usersLister is the part of the Cognito client the directory needs.
type usersLister interface {
	ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
}

// CognitoDirectory looks subjects up in a Cognito user pool by their sub.
type CognitoDirectory struct {
	client  usersLister
	poolID  string
	timeout time.Duration
}

// New builds a CognitoDirectory with static credentials.
func New(cfg Config) (*CognitoDirectory, error) {
	poolID := strings.TrimSpace(cfg.UserPoolID)
	if poolID == "" {
		return nil, errors.New("user pool id is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("user pool %q needs an access key id and secret", poolID)
	}
	region := cfg.Region
	if region == "" {
		region = RegionFromPoolID(poolID)
	}
	if region == "" {
		return nil, fmt.Errorf("cannot derive a region from user pool id %q", poolID)
	}

	opts := cip.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}

	return newDirectory(cip.New(opts), poolID, cfg.Timeout), nil
}

func newDirectory(client usersLister, poolID string, timeout time.Duration) *CognitoDirectory {
	return &CognitoDirectory{client: client, poolID: poolID, timeout: timeout}
}

// RegionFromPoolID returns the region prefix of a pool id such as
// "eu-west-1_AbC123", or "" when there is none.
func RegionFromPoolID(poolID string) string {
	region, _, ok := strings.Cut(poolID, "_")
	if !ok {
		return ""
	}
	return region
}

// Exists reports whether a user with the given sub is in the pool.
// A subject that cannot appear in a filter expression is never a user.
func (d *CognitoDirectory) Exists(ctx context.Context, subject string) (bool, error) {
	if subject == "" || strings.ContainsAny(subject, `"\`) {
		return false, nil
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	out, err := d.client.ListUsers(ctx, &cip.ListUsersInput{
		UserPoolId: aws.String(d.poolID),
		Filter:     aws.String(subFilter(subject)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list users in %s: %w", d.poolID, err)
	}
	return len(out.Users) > 0, nil
}

func subFilter(subject string) string {
	return `sub = "` + subject + `"`
}

func (d *CognitoDirectory) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}
