package logging

import (
	"fmt"
	"log/syslog"
	"strings"
)

var syslogFacilities = map[string]syslog.Priority{
	"kern":     syslog.LOG_KERN,
	"user":     syslog.LOG_USER,
	"mail":     syslog.LOG_MAIL,
	"daemon":   syslog.LOG_DAEMON,
	"auth":     syslog.LOG_AUTH,
	"syslog":   syslog.LOG_SYSLOG,
	"lpr":      syslog.LOG_LPR,
	"news":     syslog.LOG_NEWS,
	"uucp":     syslog.LOG_UUCP,
	"cron":     syslog.LOG_CRON,
	"authpriv": syslog.LOG_AUTHPRIV,
	"ftp":      syslog.LOG_FTP,
	"local0":   syslog.LOG_LOCAL0,
	"local1":   syslog.LOG_LOCAL1,
	"local2":   syslog.LOG_LOCAL2,
	"local3":   syslog.LOG_LOCAL3,
	"local4":   syslog.LOG_LOCAL4,
	"local5":   syslog.LOG_LOCAL5,
	"local6":   syslog.LOG_LOCAL6,
	"local7":   syslog.LOG_LOCAL7,
}

var syslogSeverities = map[string]syslog.Priority{
	"emerg":   syslog.LOG_EMERG,
	"alert":   syslog.LOG_ALERT,
	"crit":    syslog.LOG_CRIT,
	"err":     syslog.LOG_ERR,
	"error":   syslog.LOG_ERR,
	"warning": syslog.LOG_WARNING,
	"warn":    syslog.LOG_WARNING,
	"notice":  syslog.LOG_NOTICE,
	"info":    syslog.LOG_INFO,
	"debug":   syslog.LOG_DEBUG,
}

// DefaultSyslogPriority is used when no priority is configured.
const DefaultSyslogPriority = syslog.LOG_DAEMON | syslog.LOG_INFO

// ParseSyslogPriority parses "facility.severity" (e.g. "daemon.info").
// Either half may be omitted; the missing half comes from
// DefaultSyslogPriority.
func ParseSyslogPriority(s string) (syslog.Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSyslogPriority, nil
	}
	facility := DefaultSyslogPriority &^ 0x07
	severity := DefaultSyslogPriority & 0x07

	fac, sev, dotted := strings.Cut(s, ".")
	if !dotted {
		// A lone word is a severity if it names one, else a facility.
		if p, ok := syslogSeverities[fac]; ok {
			return facility | p, nil
		}
		sev = ""
	}
	if fac != "" {
		p, ok := syslogFacilities[fac]
		if !ok {
			return 0, fmt.Errorf("unknown syslog facility %q", fac)
		}
		facility = p
	}
	if sev != "" {
		p, ok := syslogSeverities[sev]
		if !ok {
			return 0, fmt.Errorf("unknown syslog severity %q", sev)
		}
		severity = p
	}
	return facility | severity, nil
}

// ValidateSyslogPriority rejects values outside the facility and severity
// ranges syslog(3) defines.
func ValidateSyslogPriority(p syslog.Priority) error {
	if p < 0 || p > syslog.LOG_LOCAL7|syslog.LOG_DEBUG {
		return fmt.Errorf("invalid syslog priority %d", p)
	}
	return nil
}

// Syslog sends a single message to the local syslog daemon.
func Syslog(priority syslog.Priority, tag, msg string) error {
	if err := ValidateSyslogPriority(priority); err != nil {
		return err
	}
	w, err := syslog.New(priority, tag)
	if err != nil {
		return fmt.Errorf("cannot connect to syslog: %w", err)
	}
	defer w.Close()
	_, err = w.Write([]byte(msg))
	return err
}

// SyslogForwarder sends child output to syslog, one message per write.
type SyslogForwarder struct {
	writer *syslog.Writer
	tag    string
}

// NewSyslogForwarder connects to syslog with the given tag and priority.
func NewSyslogForwarder(tag string, priority syslog.Priority) (*SyslogForwarder, error) {
	if err := ValidateSyslogPriority(priority); err != nil {
		return nil, err
	}
	w, err := syslog.New(priority, tag)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to syslog: %w", err)
	}
	return &SyslogForwarder{writer: w, tag: tag}, nil
}

// Write sends data to syslog with the forwarder's priority.
func (sf *SyslogForwarder) Write(p []byte) (int, error) {
	if _, err := sf.writer.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Forward adapts the forwarder to a Capture handler.
func (sf *SyslogForwarder) Forward(stream string, data []byte) {
	_, _ = sf.Write(data)
}

// Close closes the syslog connection.
func (sf *SyslogForwarder) Close() error {
	return sf.writer.Close()
}
