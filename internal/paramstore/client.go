// Package paramstore 从 AWS SSM Parameter Store 读取后端令牌（token_parameter）。
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI 是 Client 需要的最小 SSM 接口，*ssm.Client 满足它。
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter 按名称读取参数值。
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter 读取并解密参数。
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// ResolveToken 在 token 为空且 parameter 非空时从参数存储读取令牌，
// 否则原样返回 token。
func ResolveToken(ctx context.Context, g Getter, token, parameter string) (string, error) {
	if strings.TrimSpace(token) != "" || strings.TrimSpace(parameter) == "" {
		return strings.TrimSpace(token), nil
	}
	if g == nil {
		return "", fmt.Errorf("paramstore: %s requested but no parameter store configured", parameter)
	}
	v, err := g.GetParameter(ctx, parameter)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}
