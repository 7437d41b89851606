package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

func OK(message string) Envelope {
	if message == "" {
		return Envelope{"ok": true}
	}
	return Envelope{"ok": true, "message": message}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}
