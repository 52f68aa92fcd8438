package bridgeerrors

import "github.com/iotgw/iotgwd/internal/logger"

// Handle is the single call site that turns a taxonomy error into a log
// record at the severity the error itself carries. Bridges and the
// supervisor funnel every bridgeerrors value through here instead of
// logging ad hoc, so severity and message format stay consistent.
func Handle(err error) {
	if err == nil {
		return
	}

	sev, _ := severityOf(err)

	switch sev {
	case SeverityCritical:
		logger.Error("%v", err)
	case SeverityError:
		logger.Error("%v", err)
	case SeverityWarning:
		logger.Warn("%v", err)
	default:
		logger.Info("%v", err)
	}
}

func severityOf(err error) (Severity, bool) {
	switch e := err.(type) {
	case *ConfigError:
		return e.Severity, true
	case *DeviceConfigError:
		return e.Severity, true
	case *ConnectError:
		return e.Severity, true
	case *SendError:
		return e.Severity, true
	case *TransformError:
		return e.Severity, true
	case *UnsupportedPairError:
		return e.Severity, true
	case *KindMismatchError:
		return e.Severity, true
	case *BridgeError:
		return e.Severity, true
	default:
		return SeverityError, false
	}
}
