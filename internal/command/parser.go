package command

import (
	"regexp"
	"strconv"
	"strings"

	"greenhouse_control/internal/models"
)

const (
	scheduleKeyword = "jadwal"
	durationKeyword = "durasi"
)

var greetings = map[string]struct{}{
	"hi":              {},
	"halo":            {},
	"hallo":           {},
	"assalamualaikum": {},
	"selamat pagi":    {},
	"selamat siang":   {},
	"selamat sore":    {},
	"selamat malam":   {},
}

// literals is matched against the whole lower-cased message.
var literals = map[string]Command{
	"menu":            MenuRequest{},
	"help":            MenuRequest{},
	"start":           MenuRequest{},
	"water on":        DeviceToggle{Device: models.DeviceWater, On: true},
	"water off":       DeviceToggle{Device: models.DeviceWater, On: false},
	"fertilizer on":   DeviceToggle{Device: models.DeviceFertilizer, On: true},
	"fertilizer off":  DeviceToggle{Device: models.DeviceFertilizer, On: false},
	"cooler on":       DeviceToggle{Device: models.DeviceCooler, On: true},
	"cooler off":      DeviceToggle{Device: models.DeviceCooler, On: false},
	"auto cooler on":  AutoModeToggle{Device: models.DeviceCooler, On: true},
	"auto cooler off": AutoModeToggle{Device: models.DeviceCooler, On: false},
	"sensor":          SensorQuery{},
}

var scheduleKinds = map[string]models.ScheduleKind{
	"air":   models.ScheduleWatering,
	"pupuk": models.ScheduleFertilizing,
}

// 24-hour, zero-padded.
var timeOfDay = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Parse maps raw message text to exactly one Command. Matching is
// case-insensitive and literal; nothing is inferred from partial input.
func Parse(raw string) Command {
	text := strings.TrimSpace(raw)
	normalized := strings.ToLower(text)

	if _, ok := greetings[normalized]; ok {
		return Greeting{}
	}

	fields := strings.Fields(text)
	if len(fields) > 0 && strings.EqualFold(fields[0], scheduleKeyword) {
		return parseSchedule(text, fields)
	}

	if cmd, ok := literals[normalized]; ok {
		return cmd
	}
	return Unrecognized{RawText: text}
}

// parseSchedule handles: jadwal <air|pupuk> <HH:MM>... [durasi <minutes>]
func parseSchedule(text string, fields []string) Command {
	invalid := Unrecognized{RawText: text, FormatError: true}
	if len(fields) < 2 {
		return invalid
	}

	kind, ok := scheduleKinds[strings.ToLower(fields[1])]
	if !ok {
		return invalid
	}

	var times []string
	seen := make(map[string]struct{})
	for _, tok := range fields[2:] {
		if !timeOfDay.MatchString(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		times = append(times, tok)
	}
	if len(times) == 0 {
		return invalid
	}

	duration := models.DefaultScheduleDuration
	for i, tok := range fields {
		if !strings.EqualFold(tok, durationKeyword) {
			continue
		}
		if i+1 < len(fields) {
			n, err := strconv.Atoi(fields[i+1])
			if err != nil || n <= 0 || n > models.MaxScheduleDuration {
				return invalid
			}
			duration = n
		}
		break
	}

	return ScheduleDefinition{Kind: kind, Times: times, Duration: duration}
}
