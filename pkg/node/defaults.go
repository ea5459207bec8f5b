package node

import (
	"github.com/fako1024/hivemon/pkg/config"
	"github.com/fako1024/hivemon/pkg/report"
)

func defaultSinks(cfg config.Configuration) []report.Sink {
	return []report.Sink{
		&report.ThingSpeak{
			URL:    report.DefaultThingSpeakURL,
			APIKey: cfg.TelemetryKey,
		},
	}
}

func defaultNotifier(cfg config.Configuration) report.Notifier {
	return &report.CallMeBot{
		URL:    report.DefaultCallMeBotURL,
		Phone:  cfg.Phone,
		APIKey: cfg.AlertKey,
	}
}
