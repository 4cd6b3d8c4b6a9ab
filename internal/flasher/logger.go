package flasher

type logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
}

type nullLogger struct{}

func (l *nullLogger) Debugf(format string, args ...interface{}) {}
func (l *nullLogger) Infof(format string, args ...interface{})  {}

// The package logger
var pkgLog logger = &nullLogger{}

// SetLogger sets the logger used internally by the package.
// A *logrus.Logger satisfies the interface.
func SetLogger(l logger) {
	if l == nil {
		l = &nullLogger{}
	}
	pkgLog = l
}
