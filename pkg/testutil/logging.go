package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Test binaries log everything, but only show it when run verbosely
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	if !isVerboseTestRun(os.Args) {
		logrus.StandardLogger().SetOutput(io.Discard)
	}
}

func isVerboseTestRun(args []string) bool {
	for _, arg := range args {
		if arg == "-test.v" || arg == "-test.v=true" || strings.HasPrefix(arg, "-test.v=test2json") {
			return true
		}
	}
	return false
}

// DisableLogging discards log output until the returned reset func is called
func DisableLogging() (reset func()) {
	logger := logrus.StandardLogger()
	originalOutput := logger.Out
	logger.SetOutput(io.Discard)
	return func() {
		logger.SetOutput(originalOutput)
	}
}
