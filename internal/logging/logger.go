package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки конфигурации
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

// LogDir каталог для файлов логов
var LogDir = "logs"

// Logger представляет логгер компонента
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// defaultLogger используется пакетными функциями Info/Debug/...
var defaultLogger = &Logger{
	consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
	minConsoleLevel: INFO,
	minFileLevel:    ERROR,
}

// NewConsoleLogger создает логгер без файла, пишущий в w
func NewConsoleLogger(component string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   log.New(w, "", log.LstdFlags),
		minConsoleLevel: level,
		minFileLevel:    ERROR,
	}
}

// NewLogger создает логгер компонента с файлом logs/<component>_<timestamp>.log
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll(LogDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", LogDir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(LogDir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	return &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		fileLogger:      log.New(file, "", log.LstdFlags),
		file:            file,
		minConsoleLevel: INFO,
		minFileLevel:    TRACE,
	}, nil
}

// SetLevel меняет минимальный уровень вывода в консоль
func (l *Logger) SetLevel(level LogLevel) {
	l.minConsoleLevel = level
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}

	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, message)
	} else {
		message = fmt.Sprintf("[%s] %s", level.String(), message)
	}

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// InitDefaultLogger инициализирует логгер по умолчанию с записью в файл
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	logger.minConsoleLevel = defaultLogger.minConsoleLevel
	defaultLogger = logger
	return nil
}

// SetDefaultLogger подменяет логгер по умолчанию (используется в тестах и утилитах)
func SetDefaultLogger(logger *Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// SetDefaultLevel меняет уровень логгера по умолчанию
func SetDefaultLevel(level LogLevel) {
	defaultLogger.minConsoleLevel = level
}

// CloseDefaultLogger закрывает файл логгера по умолчанию
func CloseDefaultLogger() {
	_ = defaultLogger.Close()
}

// Trace логирует через логгер по умолчанию
func Trace(format string, args ...interface{}) { defaultLogger.log(TRACE, format, args...) }

// Debug логирует через логгер по умолчанию
func Debug(format string, args ...interface{}) { defaultLogger.log(DEBUG, format, args...) }

// Info логирует через логгер по умолчанию
func Info(format string, args ...interface{}) { defaultLogger.log(INFO, format, args...) }

// Warn логирует через логгер по умолчанию
func Warn(format string, args ...interface{}) { defaultLogger.log(WARN, format, args...) }

// Error логирует через логгер по умолчанию
func Error(format string, args ...interface{}) { defaultLogger.log(ERROR, format, args...) }

// LogInfo сохранён для старого кода
func LogInfo(format string, args ...interface{}) { Info(format, args...) }

// LogWarn сохранён для старого кода
func LogWarn(format string, args ...interface{}) { Warn(format, args...) }

// LogError сохранён для старого кода
func LogError(format string, args ...interface{}) { Error(format, args...) }

// LogCellRebuild логирует пересборку геометрии клетки
func LogCellRebuild(index int, faces int) {
	Trace("Cell %d geometry rebuilt: %d faces", index, faces)
}

// LogVisibility логирует итог расчёта видимости
func LogVisibility(setID string, visible, targets, wedges int, took time.Duration) {
	Debug("Visibility %s: visible=%d targets=%d wedges=%d took=%s", setID, visible, targets, wedges, took)
}
