package notify

import (
	"fmt"
	"strings"

	"campusevents/internal/domain"
)

// LeadLabel returns the human lead-time label used in reminder texts.
func LeadLabel(kind domain.ReminderKind) string {
	switch kind {
	case domain.Reminder24h:
		return "1 kun"
	case domain.Reminder3h:
		return "3 soat"
	case domain.Reminder1h:
		return "1 soat"
	case domain.Reminder30m:
		return "30 daqiqa"
	case domain.Reminder10m:
		return "10 daqiqa"
	}
	return string(kind)
}

// ReminderMessage builds the threshold reminder text for the media team.
func ReminderMessage(event *domain.EventWithCreator, kind domain.ReminderKind) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Tadbir eslatmasi!</b>\n\n")
	writeEventDetails(&b, event)
	fmt.Fprintf(&b, "\n⏰ <b>%s</b> qoldi!", LeadLabel(kind))
	return b.String()
}

// AnnouncementMessage builds the immediate "new event" notification sent on creation.
func AnnouncementMessage(event *domain.EventWithCreator) string {
	var b strings.Builder
	b.WriteString("📢 <b>Yangi tadbir qo'shildi!</b>\n\n")
	writeEventDetails(&b, event)
	return strings.TrimRight(b.String(), "\n")
}

func writeEventDetails(b *strings.Builder, event *domain.EventWithCreator) {
	comment := event.Comment
	if comment == "" {
		comment = "Izoh yoʼq"
	}
	fmt.Fprintf(b, "<b>%s</b>\n\n", event.Title)
	fmt.Fprintf(b, "📅 Sana: %s\n", event.Date)
	fmt.Fprintf(b, "🕐 Vaqt: %s\n", event.Time)
	fmt.Fprintf(b, "📍 Joy: %s\n", event.Place)
	fmt.Fprintf(b, "💬 Izoh: %s\n\n", comment)
	fmt.Fprintf(b, "👤 Mas'ul: %s\n", event.CreatorName)
	fmt.Fprintf(b, "🏢 Bo'lim: %s\n", event.CreatorDepartment)
	fmt.Fprintf(b, "📱 Telefon: %s\n", event.CreatorPhone)
}
