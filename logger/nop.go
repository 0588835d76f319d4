package logger

// NopLogger discards every message. It is usable as a zero value.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Fatal(string, ...any) {}

func (n NopLogger) With(...any) Logger { return n }

func (NopLogger) Level() Level { return FatalLevel }

func (NopLogger) SetLevel(Level) {}
