package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"greenhouse_control/internal/command"
	"greenhouse_control/internal/fallback"
	"greenhouse_control/internal/models"
)

// Reply catalog. The deployment audience reads Indonesian.
const (
	msgGreeting = "👋 Halo! Saya asisten Smart Greenhouse.\nKetik *menu* untuk melihat perintah yang tersedia."

	msgMenu = "📋 Menu Smart Greenhouse:\n\n" +
		"• water on/off – Pompa air 💧\n" +
		"• fertilizer on/off – Pompa pupuk 🌿\n" +
		"• cooler on/off – Pendingin ❄\n" +
		"• auto cooler on/off – Mode otomatis pendingin 🧠\n" +
		"• sensor – Lihat data sensor 🌡\n" +
		"• jadwal air/pupuk [waktu...] durasi [menit] – Atur jadwal otomatis"

	msgAutoCoolerOn  = "🧠 Mode otomatis pendingin diaktifkan. Pendingin akan menyala saat suhu > 34°C."
	msgAutoCoolerOff = "🛑 Mode otomatis pendingin dinonaktifkan. Sekarang kamu bisa mengontrol manual."

	msgScheduleSaved       = "✅ Jadwal %s disimpan:\nWaktu: %s\nDurasi: %d menit"
	msgScheduleFormatError = "❌ Format salah. Contoh: jadwal air 06:00 18:00 durasi 5"

	msgSensorReadout     = "🌡 Suhu: %s °C\n💧 Kelembapan Udara: %s %%\n🌱 Kelembapan Tanah: %s %%"
	msgSensorUnavailable = "⚠ Data sensor belum tersedia."
	sensorPlaceholder    = "-"

	msgFallbackEmpty   = "Maaf, saya tidak dapat memproses pesan Anda."
	msgFallbackQuota   = "💸 Maaf, sistem sedang kehabisan kredit. Coba lagi nanti atau hubungi admin."
	msgFallbackFailure = "⚠ Terjadi kesalahan saat memproses pesan Anda."
)

var deviceReplies = map[models.Device][2]string{ // [off, on]
	models.DeviceWater:      {"⚫ Pompa air dimatikan!", "💧 Pompa air dinyalakan!"},
	models.DeviceFertilizer: {"⚫ Pompa pupuk dimatikan!", "🌿 Pompa pupuk dinyalakan!"},
	models.DeviceCooler:     {"⚫ Pendingin dimatikan!", "❄ Pendingin dinyalakan!"},
}

var scheduleNames = map[models.ScheduleKind]string{
	models.ScheduleWatering:    "penyiraman",
	models.ScheduleFertilizing: "pemupukan",
}

// Outcome carries what the dispatcher learned while executing a command.
type Outcome struct {
	Sensor      *models.SensorSnapshot // SensorQuery
	Completion  string                 // Unrecognized, fallback answer
	FallbackErr error                  // Unrecognized, fallback failure
}

// Composer renders replies. It has no side effects and never fails.
type Composer struct{}

// Compose returns the reply for cmd given out. An empty string means there is
// nothing to send.
func (Composer) Compose(cmd command.Command, out Outcome) string {
	switch c := cmd.(type) {
	case command.Greeting:
		return msgGreeting
	case command.MenuRequest:
		return msgMenu
	case command.DeviceToggle:
		replies, ok := deviceReplies[c.Device]
		if !ok {
			return ""
		}
		if c.On {
			return replies[1]
		}
		return replies[0]
	case command.AutoModeToggle:
		if c.On {
			return msgAutoCoolerOn
		}
		return msgAutoCoolerOff
	case command.ScheduleDefinition:
		return fmt.Sprintf(msgScheduleSaved, scheduleNames[c.Kind], strings.Join(c.Times, ", "), c.Duration)
	case command.SensorQuery:
		return sensorReply(out.Sensor)
	case command.Unrecognized:
		if c.FormatError {
			return msgScheduleFormatError
		}
		return fallbackReply(out)
	}
	return ""
}

func sensorReply(snap *models.SensorSnapshot) string {
	if snap == nil {
		return msgSensorUnavailable
	}
	return fmt.Sprintf(msgSensorReadout,
		oneDecimal(snap.Temperature),
		oneDecimal(snap.Humidity),
		oneDecimal(snap.SoilMoisture),
	)
}

func oneDecimal(v *float64) string {
	if v == nil {
		return sensorPlaceholder
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func fallbackReply(out Outcome) string {
	if out.FallbackErr != nil {
		if errors.Is(out.FallbackErr, fallback.ErrQuotaExceeded) {
			return msgFallbackQuota
		}
		return msgFallbackFailure
	}
	if text := strings.TrimSpace(out.Completion); text != "" {
		return text
	}
	return msgFallbackEmpty
}
