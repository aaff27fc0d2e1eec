// internal/store/dynamodb/dynamodbconfig.go
package dynamodb

import (
	"errors"

	"github.com/avivl/seat-quest/internal/store"
)

type DynamoDBConfig struct {
	store.BaseStoreConfig `yaml:",inline" mapstructure:",squash"`
	Region                string   `yaml:"region" mapstructure:"region"`
	Table                 string   `yaml:"table" mapstructure:"table"`
	Endpoints             []string `yaml:"endpoints" mapstructure:"endpoints"`
	Profile               string   `yaml:"profile,omitempty" mapstructure:"profile"`
	AccessKeyID           string   `yaml:"accessKeyId,omitempty" mapstructure:"accessKeyId"`
	SecretAccessKey       string   `yaml:"secretAccessKey,omitempty" mapstructure:"secretAccessKey"`
}

func (c *DynamoDBConfig) GetTableName() string {
	return c.Table
}

func (c *DynamoDBConfig) GetEndpoints() []string {
	return c.Endpoints
}

func (c *DynamoDBConfig) Validate() error {
	if c.Region == "" {
		return errors.New("region is required")
	}
	if c.Table == "" {
		return errors.New("table is required")
	}
	if c.LockTTL < 0 {
		return errors.New("lock TTL cannot be negative")
	}
	if c.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}
	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint is required")
	}
	// Check if credentials are provided consistently
	if (c.AccessKeyID != "" && c.SecretAccessKey == "") ||
		(c.AccessKeyID == "" && c.SecretAccessKey != "") {
		return errors.New("both access key and secret key must be provided together")
	}
	return nil
}

// NewDynamoDBConfig creates a new DynamoDB configuration with default values
func NewDynamoDBConfig() *DynamoDBConfig {
	return &DynamoDBConfig{
		BaseStoreConfig: store.BaseStoreConfig{
			LockTTL:       store.DefaultLockTTL,
			SweepInterval: store.DefaultSweepInterval,
		},
		Region:    "us-west-2",
		Table:     "seat-quest",
		Endpoints: []string{"dynamodb.us-west-2.amazonaws.com"},
	}
}
