package zaplogger

import "testing"

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		logger, err := New(level)
		if err != nil {
			t.Errorf("New(%q): %v", level, err)
			continue
		}
		logger.Debug("test")
	}
	if _, err := New("loud"); err == nil {
		t.Error("ожидали ошибку для неизвестного уровня")
	}
}
