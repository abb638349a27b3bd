package client

import "context"

// PersonClient accesses Person records
type PersonClient struct {
	*Table[Person]
}

// Tags returns the PersonTag rows of a person
func (c *PersonClient) Tags(ctx context.Context, personID string) ([]*PersonTag, error) {
	return hasMany[PersonTag](ctx, c.backend, c.model, personID, "tags")
}

// Attendances returns the attendance rows of a person
func (c *PersonClient) Attendances(ctx context.Context, personID string) ([]*Attendance, error) {
	return hasMany[Attendance](ctx, c.backend, c.model, personID, "attendances")
}

// Roles returns the meeting roles held by a person
func (c *PersonClient) Roles(ctx context.Context, personID string) ([]*MeetingRole, error) {
	return hasMany[MeetingRole](ctx, c.backend, c.model, personID, "roles")
}

// MeetingClient accesses Meeting records
type MeetingClient struct {
	*Table[Meeting]
}

func (c *MeetingClient) Tags(ctx context.Context, meetingID string) ([]*MeetingTag, error) {
	return hasMany[MeetingTag](ctx, c.backend, c.model, meetingID, "tags")
}

func (c *MeetingClient) Attendances(ctx context.Context, meetingID string) ([]*Attendance, error) {
	return hasMany[Attendance](ctx, c.backend, c.model, meetingID, "attendances")
}

func (c *MeetingClient) Roles(ctx context.Context, meetingID string) ([]*MeetingRole, error) {
	return hasMany[MeetingRole](ctx, c.backend, c.model, meetingID, "roles")
}

// AttendanceClient accesses Attendance records
type AttendanceClient struct {
	*Table[Attendance]
}

func (c *AttendanceClient) Person(ctx context.Context, attendanceID string) (*Person, error) {
	return belongsTo[Person](ctx, c.backend, c.model, attendanceID, "person")
}

func (c *AttendanceClient) Meeting(ctx context.Context, attendanceID string) (*Meeting, error) {
	return belongsTo[Meeting](ctx, c.backend, c.model, attendanceID, "meeting")
}

// MeetingRoleClient accesses MeetingRole records
type MeetingRoleClient struct {
	*Table[MeetingRole]
}

func (c *MeetingRoleClient) Person(ctx context.Context, roleID string) (*Person, error) {
	return belongsTo[Person](ctx, c.backend, c.model, roleID, "person")
}

func (c *MeetingRoleClient) Meeting(ctx context.Context, roleID string) (*Meeting, error) {
	return belongsTo[Meeting](ctx, c.backend, c.model, roleID, "meeting")
}

// TagClient accesses Tag records
type TagClient struct {
	*Table[Tag]
}

// PersonTags returns the PersonTag rows using a tag
func (c *TagClient) PersonTags(ctx context.Context, tagID string) ([]*PersonTag, error) {
	return hasMany[PersonTag](ctx, c.backend, c.model, tagID, "personTags")
}

// MeetingTags returns the MeetingTag rows using a tag
func (c *TagClient) MeetingTags(ctx context.Context, tagID string) ([]*MeetingTag, error) {
	return hasMany[MeetingTag](ctx, c.backend, c.model, tagID, "meetingTags")
}

// PersonTagClient accesses PersonTag records
type PersonTagClient struct {
	*Table[PersonTag]
}

func (c *PersonTagClient) Person(ctx context.Context, personTagID string) (*Person, error) {
	return belongsTo[Person](ctx, c.backend, c.model, personTagID, "person")
}

func (c *PersonTagClient) Tag(ctx context.Context, personTagID string) (*Tag, error) {
	return belongsTo[Tag](ctx, c.backend, c.model, personTagID, "tag")
}

// MeetingTagClient accesses MeetingTag records
type MeetingTagClient struct {
	*Table[MeetingTag]
}

func (c *MeetingTagClient) Meeting(ctx context.Context, meetingTagID string) (*Meeting, error) {
	return belongsTo[Meeting](ctx, c.backend, c.model, meetingTagID, "meeting")
}

func (c *MeetingTagClient) Tag(ctx context.Context, meetingTagID string) (*Tag, error) {
	return belongsTo[Tag](ctx, c.backend, c.model, meetingTagID, "tag")
}
