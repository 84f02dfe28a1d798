package notify

// Level represents the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelDebug   Level = "debug"
)

// Color returns the Slack attachment color for the level
func (l Level) Color() string {
	switch l {
	case LevelInfo:
		return "good"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "danger"
	case LevelDebug:
		return "#CCCCCC" // light gray
	default:
		return "#808080" // gray
	}
}

// Prefix returns the message prefix for the level
func (l Level) Prefix() string {
	switch l {
	case LevelWarning:
		return "*WARNING*: "
	case LevelDebug:
		return "*DEBUG*: "
	default:
		return ""
	}
}

func (l Level) String() string {
	return string(l)
}
