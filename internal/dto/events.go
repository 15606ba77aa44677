package dto

import "time"

// SectionAction names the mutation a SectionEvent describes.
type SectionAction string

const (
	SectionCreated          SectionAction = "created"
	SectionUpdated          SectionAction = "updated"
	SectionDeleted          SectionAction = "deleted"
	SectionProfessorAdded   SectionAction = "professor_added"
	SectionProfessorRemoved SectionAction = "professor_removed"
)

// SectionEventType is the message type published for section changes.
const SectionEventType = "section.changed"

// SectionEvent is published after a committed section mutation.
type SectionEvent struct {
	Action        SectionAction `json:"action"`
	SectionID     string        `json:"section_id"`
	ComponentCode string        `json:"component_code"`
	Number        int           `json:"number"`
	Schedule      string        `json:"schedule"`
	ProfessorIDs  []string      `json:"professor_ids"`
	At            time.Time     `json:"at"`
}
