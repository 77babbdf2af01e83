package main

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/payments-server/pkg/grpc/app"
	payments_app "github.com/code-payments/payments-server/pkg/payments/app"
)

func main() {
	if err := app.Run(payments_app.New()); err != nil {
		logrus.WithError(err).Fatal("error running payments server")
	}
}
