package dto

import "github.com/bogdanivan12/odes/internal/models"

// CreateRoomRequest registers a room under an institution.
type CreateRoomRequest struct {
	Name     string   `json:"name" validate:"required"`
	Capacity int      `json:"capacity" validate:"min=0"`
	Features []string `json:"features"`
}

// UpdateRoomRequest replaces a room's mutable fields.
type UpdateRoomRequest struct {
	Name     string   `json:"name" validate:"required"`
	Capacity int      `json:"capacity" validate:"min=0"`
	Features []string `json:"features"`
}

// CreateGroupRequest registers a student group, optionally under a parent.
type CreateGroupRequest struct {
	Name          string  `json:"name" validate:"required"`
	ParentGroupID *string `json:"parent_group_id,omitempty"`
}

// UpdateGroupRequest replaces a group's mutable fields.
type UpdateGroupRequest struct {
	Name          string  `json:"name" validate:"required"`
	ParentGroupID *string `json:"parent_group_id,omitempty"`
}

// CreateCourseRequest registers a course.
type CreateCourseRequest struct {
	Name                    string `json:"name" validate:"required"`
	ActivitiesDurationSlots *int   `json:"activities_duration_slots,omitempty" validate:"omitempty,min=1"`
}

// UpdateCourseRequest replaces a course's mutable fields.
type UpdateCourseRequest struct {
	Name                    string `json:"name" validate:"required"`
	ActivitiesDurationSlots *int   `json:"activities_duration_slots,omitempty" validate:"omitempty,min=1"`
}

// CreateActivityRequest registers a schedulable activity.
type CreateActivityRequest struct {
	CourseID             string                   `json:"course_id" validate:"required"`
	ActivityType         models.ActivityType      `json:"activity_type" validate:"required"`
	DurationSlots        int                      `json:"duration_slots" validate:"required,min=1"`
	GroupID              string                   `json:"group_id" validate:"required"`
	ProfessorID          *string                  `json:"professor_id,omitempty"`
	RequiredRoomFeatures []string                 `json:"required_room_features"`
	Frequency            models.Frequency         `json:"frequency" validate:"required"`
	SelectedTimeslot     *models.SelectedTimeslot `json:"selected_timeslot,omitempty"`
}

// UpdateActivityRequest replaces an activity's mutable fields.
type UpdateActivityRequest struct {
	CourseID             string                   `json:"course_id" validate:"required"`
	ActivityType         models.ActivityType      `json:"activity_type" validate:"required"`
	DurationSlots        int                      `json:"duration_slots" validate:"required,min=1"`
	GroupID              string                   `json:"group_id" validate:"required"`
	ProfessorID          *string                  `json:"professor_id,omitempty"`
	RequiredRoomFeatures []string                 `json:"required_room_features"`
	Frequency            models.Frequency         `json:"frequency" validate:"required"`
	SelectedTimeslot     *models.SelectedTimeslot `json:"selected_timeslot,omitempty"`
}

// ActivityListQuery narrows activity listings.
type ActivityListQuery struct {
	GroupID     string `form:"group_id"`
	CourseID    string `form:"course_id"`
	ProfessorID string `form:"professor_id"`
}
