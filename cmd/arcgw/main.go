// Copyright 2024 Arcstor
// This file is licensed under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/backend/memory"
	"github.com/arcstor/arcgw/metrics"
	"github.com/arcstor/arcgw/s3api"
	"github.com/arcstor/arcgw/s3api/middlewares"
	"github.com/arcstor/arcgw/s3event"
	"github.com/arcstor/arcgw/s3log"
)

var (
	port              string
	rootUserAccess    string
	rootUserSecret    string
	region            string
	certFile, keyFile string
	quiet             bool
	healthPath        string
	virtualDomains    cli.StringSlice

	iamDir         string
	ldapURL        string
	ldapBindDN     string
	ldapPassword   string
	ldapQueryBase  string
	ldapObjClasses string
	ldapAccessAtr  string
	ldapSecretAtr  string
	ldapRoleAtr    string

	accessLogFile string
	logWebhookURL string

	kafkaURL, kafkaTopic, kafkaKey     string
	natsURL, natsTopic                 string
	rabbitmqURL, rabbitmqExchange      string
	rabbitmqRoutingKey                 string
	eventWebhookURL, eventFilterConfig string

	statsdServers    string
	dogstatsdServers string
)

var (
	// Version is the latest tag (set within Makefile)
	Version = "git"
	// Build is the commit hash (set within Makefile)
	Build = "norev"
	// BuildTime is the date/time of build (set within Makefile)
	BuildTime = "none"
)

func main() {
	setupSignalHandler()

	app := initApp()

	app.Commands = []*cli.Command{
		memoryCommand(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigDone
		fmt.Fprintf(os.Stderr, "terminating signal caught, shutting down\n")
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func initApp() *cli.App {
	return &cli.App{
		Name:  "arcgw",
		Usage: "Start S3 gateway service with specified backend storage.",
		Description: `The S3 gateway is an S3 protocol translator that allows an S3 client
to access the supported backend storage as if it was a native S3 service.`,
		Action: func(ctx *cli.Context) error {
			return ctx.App.Command("help").Run(ctx)
		},
		Flags: initFlags(),
	}
}

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:        "memory",
		Usage:       "memory storage backend",
		Description: `Serves the gateway from process memory. Nothing survives a restart.`,
		Action: func(ctx *cli.Context) error {
			return runGateway(ctx.Context)
		},
	}
}

func initFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "version",
			Usage:   "list arcgw version",
			Aliases: []string{"v"},
			Action: func(*cli.Context, bool) error {
				fmt.Println("Version  :", Version)
				fmt.Println("Build    :", Build)
				fmt.Println("BuildTime:", BuildTime)
				os.Exit(0)
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "port",
			Usage:       "gateway listen address <ip>:<port> or :<port>",
			Value:       ":7070",
			Destination: &port,
			Aliases:     []string{"p"},
		},
		&cli.StringFlag{
			Name:        "access",
			Usage:       "root user access key",
			EnvVars:     []string{"ROOT_ACCESS_KEY_ID", "ROOT_ACCESS_KEY"},
			Aliases:     []string{"a"},
			Destination: &rootUserAccess,
		},
		&cli.StringFlag{
			Name:        "secret",
			Usage:       "root user secret access key",
			EnvVars:     []string{"ROOT_SECRET_ACCESS_KEY", "ROOT_SECRET_KEY"},
			Aliases:     []string{"s"},
			Destination: &rootUserSecret,
		},
		&cli.StringFlag{
			Name:        "region",
			Usage:       "s3 region string",
			Value:       "us-east-1",
			Destination: &region,
			Aliases:     []string{"r"},
		},
		&cli.StringFlag{
			Name:        "cert",
			Usage:       "TLS cert file",
			Destination: &certFile,
		},
		&cli.StringFlag{
			Name:        "key",
			Usage:       "TLS key file",
			Destination: &keyFile,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Usage:       "silence stdout request logging output",
			Destination: &quiet,
			Aliases:     []string{"q"},
		},
		&cli.StringFlag{
			Name:        "health",
			Usage:       "health check endpoint path, disabled when unset",
			Destination: &healthPath,
		},
		&cli.StringSliceFlag{
			Name:        "virtual-domain",
			Usage:       "enable host-style bucket addressing for the domain suffix, repeatable",
			Destination: &virtualDomains,
		},
		&cli.StringFlag{
			Name:        "iam-dir",
			Usage:       "if defined, run internal iam service within this directory",
			Destination: &iamDir,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-url",
			Usage:       "ldap server url to store iam data",
			Destination: &ldapURL,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-bind-dn",
			Usage:       "ldap server binding dn, example: 'cn=admin,dc=example,dc=com'",
			Destination: &ldapBindDN,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-bind-pass",
			Usage:       "ldap server user password",
			Destination: &ldapPassword,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-query-base",
			Usage:       "ldap server destination query, example: 'ou=iam,dc=example,dc=com'",
			Destination: &ldapQueryBase,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-object-classes",
			Usage:       "ldap server object classes used to store the data. provide it as comma separated string, example: 'top,person'",
			Destination: &ldapObjClasses,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-access-atr",
			Usage:       "ldap server user access key id attribute name",
			Destination: &ldapAccessAtr,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-secret-atr",
			Usage:       "ldap server user secret access key attribute name",
			Destination: &ldapSecretAtr,
		},
		&cli.StringFlag{
			Name:        "iam-ldap-role-atr",
			Usage:       "ldap server user role attribute name",
			Destination: &ldapRoleAtr,
		},
		&cli.StringFlag{
			Name:        "access-log",
			Usage:       "enable server access logging to specified file",
			Destination: &accessLogFile,
		},
		&cli.StringFlag{
			Name:        "log-webhook-url",
			Usage:       "webhook url to send the audit logs",
			Destination: &logWebhookURL,
		},
		&cli.StringFlag{
			Name:        "event-kafka-url",
			Usage:       "kafka server url to send the bucket notifications.",
			Destination: &kafkaURL,
			Aliases:     []string{"eku"},
		},
		&cli.StringFlag{
			Name:        "event-kafka-topic",
			Usage:       "kafka server pub-sub topic to send the bucket notifications to",
			Destination: &kafkaTopic,
			Aliases:     []string{"ekt"},
		},
		&cli.StringFlag{
			Name:        "event-kafka-key",
			Usage:       "kafka server pub-sub topic key to send the bucket notifications to",
			Destination: &kafkaKey,
			Aliases:     []string{"ekk"},
		},
		&cli.StringFlag{
			Name:        "event-nats-url",
			Usage:       "nats server url to send the bucket notifications",
			Destination: &natsURL,
			Aliases:     []string{"enu"},
		},
		&cli.StringFlag{
			Name:        "event-nats-topic",
			Usage:       "nats server pub-sub topic to send the bucket notifications to",
			Destination: &natsTopic,
			Aliases:     []string{"ent"},
		},
		&cli.StringFlag{
			Name:        "event-rabbitmq-url",
			Usage:       "rabbitmq server url to send the bucket notifications",
			Destination: &rabbitmqURL,
			Aliases:     []string{"eru"},
		},
		&cli.StringFlag{
			Name:        "event-rabbitmq-exchange",
			Usage:       "rabbitmq exchange to publish the bucket notifications to",
			Destination: &rabbitmqExchange,
			Aliases:     []string{"ere"},
		},
		&cli.StringFlag{
			Name:        "event-rabbitmq-routing-key",
			Usage:       "rabbitmq routing key for the bucket notifications",
			Destination: &rabbitmqRoutingKey,
			Aliases:     []string{"erk"},
		},
		&cli.StringFlag{
			Name:        "event-webhook-url",
			Usage:       "webhook url to send bucket notifications",
			Destination: &eventWebhookURL,
			Aliases:     []string{"ewu"},
		},
		&cli.StringFlag{
			Name:        "event-filter",
			Usage:       "bucket event notifications filters configuration file path",
			Destination: &eventFilterConfig,
			Aliases:     []string{"ef"},
		},
		&cli.StringFlag{
			Name:        "metrics-statsd-servers",
			Usage:       "comma separated list of statsd server urls to send the metrics",
			Destination: &statsdServers,
			Aliases:     []string{"mss"},
		},
		&cli.StringFlag{
			Name:        "metrics-dogstatsd-servers",
			Usage:       "comma separated list of dogstatsd server urls to send the metrics",
			Destination: &dogstatsdServers,
			Aliases:     []string{"mds"},
		},
	}
}

func runGateway(ctx context.Context) error {
	be := memory.New()

	app := fiber.New(fiber.Config{
		AppName:           "arcgw",
		ServerHeader:      "ARCGW",
		StreamRequestBody: true,
		DisableKeepalive:  true,
		BodyLimit:         5 * 1024 * 1024 * 1024,
	})

	var opts []s3api.Option

	if certFile != "" || keyFile != "" {
		if certFile == "" {
			return fmt.Errorf("TLS key specified without cert file")
		}
		if keyFile == "" {
			return fmt.Errorf("TLS cert specified without key file")
		}

		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("tls: load certs: %v", err)
		}
		opts = append(opts, s3api.WithTLS(cert))
	}

	if quiet {
		opts = append(opts, s3api.WithQuiet())
	}
	if healthPath != "" {
		opts = append(opts, s3api.WithHealth(healthPath))
	}
	if domains := virtualDomains.Value(); len(domains) > 0 {
		opts = append(opts, s3api.WithHostStyle(domains))
	}

	iam, err := auth.New(&auth.Opts{
		Dir:            iamDir,
		LDAPServerURL:  ldapURL,
		LDAPBindDN:     ldapBindDN,
		LDAPPassword:   ldapPassword,
		LDAPQueryBase:  ldapQueryBase,
		LDAPObjClasses: ldapObjClasses,
		LDAPAccessAtr:  ldapAccessAtr,
		LDAPSecretAtr:  ldapSecretAtr,
		LDAPRoleAtr:    ldapRoleAtr,
	})
	if err != nil {
		return fmt.Errorf("setup iam: %w", err)
	}

	logger, err := s3log.InitLogger(&s3log.LogConfig{
		LogFile:    accessLogFile,
		WebhookURL: logWebhookURL,
	})
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	evSender, err := s3event.InitEventSender(&s3event.EventConfig{
		KafkaURL:             kafkaURL,
		KafkaTopic:           kafkaTopic,
		KafkaTopicKey:        kafkaKey,
		NatsURL:              natsURL,
		NatsTopic:            natsTopic,
		RabbitmqURL:          rabbitmqURL,
		RabbitmqExchange:     rabbitmqExchange,
		RabbitmqRoutingKey:   rabbitmqRoutingKey,
		WebhookURL:           eventWebhookURL,
		FilterConfigFilePath: eventFilterConfig,
	})
	if err != nil {
		return fmt.Errorf("unable to connect to the message broker: %w", err)
	}

	mm, err := metrics.NewManager(ctx, metrics.Config{
		StatsdServers:    statsdServers,
		DogStatsdServers: dogstatsdServers,
	})
	if err != nil {
		return fmt.Errorf("setup metrics manager: %w", err)
	}

	srv, err := s3api.New(app, be, middlewares.RootUserConfig{
		Access: rootUserAccess,
		Secret: rootUserSecret,
	}, port, region, iam, logger, evSender, mm, opts...)
	if err != nil {
		return fmt.Errorf("init gateway: %v", err)
	}

	c := make(chan error, 1)
	go func() { c <- srv.Serve() }()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-c:
	}

	be.Shutdown()
	shutdownServices(logger, evSender, mm)
	return err
}

func shutdownServices(logger s3log.AuditLogger, evs s3event.S3EventSender, mm *metrics.Manager) {
	if logger != nil {
		if err := logger.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown logger: %v\n", err)
		}
	}
	if evs != nil {
		if err := evs.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close event sender: %v\n", err)
		}
	}
	if mm != nil {
		mm.Close()
	}
}
