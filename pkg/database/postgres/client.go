package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const (
	// PgxDriverName is the plain pgx driver, used for tests and local runs
	PgxDriverName = "pgx"

	// NewRelicDriverName is the New Relic instrumented pgx driver
	NewRelicDriverName = "nrpgx"

	defaultPingTimeout = 10 * time.Second
)

type Config struct {
	User     string `mapstructure:"user"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`
	DbName   string `mapstructure:"db_name"`

	// UseAwsIam authenticates with a short lived RDS IAM token instead of
	// Password. Only supported on provisioned Aurora RDS clusters.
	UseAwsIam bool `mapstructure:"use_aws_iam"`

	// Driver defaults to NewRelicDriverName
	Driver string `mapstructure:"driver"`

	MaxOpenConnections int `mapstructure:"max_open_connections"`
	MaxIdleConnections int `mapstructure:"max_idle_connections"`
}

// Validate validates the config
func (c *Config) Validate() error {
	if len(c.User) == 0 {
		return errors.New("user is required")
	}
	if len(c.Host) == 0 {
		return errors.New("host is required")
	}
	if c.Port <= 0 {
		return errors.New("port is required")
	}
	if len(c.DbName) == 0 {
		return errors.New("db name is required")
	}
	if !c.UseAwsIam && len(c.Password) == 0 {
		return errors.New("password is required without aws iam auth")
	}
	return nil
}

// Open opens a connection pool using the authentication mechanism selected by
// the config, and verifies connectivity.
func Open(ctx context.Context, c *Config) (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid postgres config")
	}

	var db *sql.DB
	var err error
	if c.UseAwsIam {
		var awsConfig aws.Config
		awsConfig, err = external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "error loading aws config")
		}

		db, err = NewWithAwsIam(ctx, c.driverName(), c.User, c.Host, c.Port, c.DbName, awsConfig)
	} else {
		db, err = NewWithUsernameAndPassword(ctx, c.driverName(), c.User, c.Password, c.Host, c.Port, c.DbName)
	}
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}

	db.SetConnMaxIdleTime(time.Hour)
	db.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func (c *Config) driverName() string {
	if len(c.Driver) == 0 {
		return NewRelicDriverName
	}
	return c.Driver
}

// NewWithAwsIam gets a DB connection pool using AWS IAM credentials
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(ctx context.Context, driver, username, hostname string, port int, dbname string, config aws.Config) (*sql.DB, error) {
	// Create an RDS client so we can grab the credential provider from it
	rdsClient := rds.New(config)

	endpoint := fmt.Sprintf("%s:%d", hostname, port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, username, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "error building rds auth token")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		hostname, port, username, authToken, dbname,
	)
	return openAndPing(ctx, driver, dsn)
}

// NewWithUsernameAndPassword gets a DB connection pool using username/password
// credentials
func NewWithUsernameAndPassword(ctx context.Context, driver, username, password, hostname string, port int, dbname string) (*sql.DB, error) {
	// TODO: enable SSL once the RDS certificate bundle is shipped with the image
	// (https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/AuroraPostgreSQL.Security.html)
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	)
	return openAndPing(ctx, driver, dsn)
}

func openAndPing(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error pinging database")
	}
	return db, nil
}
