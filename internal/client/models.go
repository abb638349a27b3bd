package client

import (
	"time"

	"github.com/flockhq/flock/internal/entities"
)

// AttendanceStatus is how a person attended a meeting
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// MeetingRoleType is the part a person plays in a meeting
type MeetingRoleType string

const (
	RoleSpeaker       MeetingRoleType = "SPEAKER"
	RoleSharer        MeetingRoleType = "SHARER"
	RoleWorshipLeader MeetingRoleType = "WORSHIP_LEADER"
	RoleModerator     MeetingRoleType = "MODERATOR"
	RoleOther         MeetingRoleType = "OTHER"
)

// Meta holds the server-managed columns of every record
type Meta struct {
	ID        string    `mapstructure:"id"`
	CreatedAt time.Time `mapstructure:"createdAt"`
	UpdatedAt time.Time `mapstructure:"updatedAt"`
}

// Person is a member or visitor of the congregation
type Person struct {
	Meta         `mapstructure:",squash"`
	FullName     string `mapstructure:"fullName" validate:"required"`
	Address      string `mapstructure:"address" validate:"required"`
	WhatsappE164 string `mapstructure:"whatsappE164" validate:"required,e164"`
	Notes        string `mapstructure:"notes"`
}

func (p *Person) fields() map[string]any {
	return map[string]any{
		"fullName":     p.FullName,
		"address":      p.Address,
		"whatsappE164": p.WhatsappE164,
		"notes":        optional(p.Notes),
	}
}

// Meeting is a gathering on a given date
type Meeting struct {
	Meta         `mapstructure:",squash"`
	MeetingDate  time.Time `mapstructure:"meetingDate" validate:"required"`
	MessageTitle string    `mapstructure:"messageTitle"`
	Notes        string    `mapstructure:"notes"`
}

func (m *Meeting) fields() map[string]any {
	return map[string]any{
		"meetingDate":  m.MeetingDate.Format(entities.DateLayout),
		"messageTitle": optional(m.MessageTitle),
		"notes":        optional(m.Notes),
	}
}

// Attendance records a person at a meeting
type Attendance struct {
	Meta      `mapstructure:",squash"`
	Status    AttendanceStatus `mapstructure:"status" validate:"omitempty,oneof=PRESENT LATE EXCUSED ABSENT"`
	CheckInAt *time.Time       `mapstructure:"checkInAt"`
	CheckInBy string           `mapstructure:"checkInBy"`
	Remarks   string           `mapstructure:"remarks"`
	PersonID  string           `mapstructure:"personID" validate:"required"`
	MeetingID string           `mapstructure:"meetingID" validate:"required"`
}

func (a *Attendance) fields() map[string]any {
	return map[string]any{
		"status":    optional(string(a.Status)),
		"checkInAt": optionalTime(a.CheckInAt),
		"checkInBy": optional(a.CheckInBy),
		"remarks":   optional(a.Remarks),
		"personID":  a.PersonID,
		"meetingID": a.MeetingID,
	}
}

// MeetingRole assigns a person a part in a meeting
type MeetingRole struct {
	Meta      `mapstructure:",squash"`
	RoleType  MeetingRoleType `mapstructure:"roleType" validate:"omitempty,oneof=SPEAKER SHARER WORSHIP_LEADER MODERATOR OTHER"`
	Details   string          `mapstructure:"details"`
	PersonID  string          `mapstructure:"personID" validate:"required"`
	MeetingID string          `mapstructure:"meetingID" validate:"required"`
}

func (r *MeetingRole) fields() map[string]any {
	return map[string]any{
		"roleType":  optional(string(r.RoleType)),
		"details":   optional(r.Details),
		"personID":  r.PersonID,
		"meetingID": r.MeetingID,
	}
}

// Tag is a label for people and meetings
type Tag struct {
	Meta    `mapstructure:",squash"`
	Name    string `mapstructure:"name" validate:"required"`
	TagType string `mapstructure:"tagType"`
}

func (t *Tag) fields() map[string]any {
	return map[string]any{
		"name":    t.Name,
		"tagType": optional(t.TagType),
	}
}

// PersonTag labels a person with a tag
type PersonTag struct {
	Meta       `mapstructure:",squash"`
	AssignedAt *time.Time `mapstructure:"assignedAt"`
	PersonID   string     `mapstructure:"personID" validate:"required"`
	TagID      string     `mapstructure:"tagID" validate:"required"`
}

func (pt *PersonTag) fields() map[string]any {
	return map[string]any{
		"assignedAt": optionalTime(pt.AssignedAt),
		"personID":   pt.PersonID,
		"tagID":      pt.TagID,
	}
}

// MeetingTag labels a meeting with a tag
type MeetingTag struct {
	Meta       `mapstructure:",squash"`
	AssignedAt *time.Time `mapstructure:"assignedAt"`
	MeetingID  string     `mapstructure:"meetingID" validate:"required"`
	TagID      string     `mapstructure:"tagID" validate:"required"`
}

func (mt *MeetingTag) fields() map[string]any {
	return map[string]any{
		"assignedAt": optionalTime(mt.AssignedAt),
		"meetingID":  mt.MeetingID,
		"tagID":      mt.TagID,
	}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(entities.DateTimeLayout)
}
