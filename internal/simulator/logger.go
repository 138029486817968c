package simulator

import "github.com/sirupsen/logrus"

// Logger is satisfied by *logrus.Logger and *logrus.Entry; every component
// takes one rather than logging through a package global.
type Logger interface {
	logrus.FieldLogger
}
