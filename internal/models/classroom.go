package models

import "time"

// Schedule is the weekly time slot a classroom meets.
type Schedule struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// Classroom belongs to exactly one school and cannot outlive it. Student
// membership lives in the classroom_students join table and must stay a
// subset of the owning school's student roster.
type Classroom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SchoolID  string    `json:"schoolId"`
	Schedule  Schedule  `json:"schedule"`
	CreatedAt time.Time `json:"-"`
}
