package workspace

import (
	"encoding/json"

	"github.com/google/uuid"

	"pulseflow/internal/apperr"
)

// OverlayKind names the one overlay a workspace may show at a time.
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayShareBoard
	OverlayEditBoard
	OverlayEditTask
	OverlayTaskDetail
	OverlayDelete
	OverlayFeedback
	OverlayProfile
	OverlayTeam
	OverlayCoffee
)

var overlayNames = [...]string{
	OverlayNone:       "none",
	OverlayShareBoard: "share_board",
	OverlayEditBoard:  "edit_board",
	OverlayEditTask:   "edit_task",
	OverlayTaskDetail: "task_detail",
	OverlayDelete:     "delete",
	OverlayFeedback:   "feedback",
	OverlayProfile:    "profile",
	OverlayTeam:       "team",
	OverlayCoffee:     "coffee",
}

func (k OverlayKind) String() string {
	if k < 0 || int(k) >= len(overlayNames) {
		return "unknown"
	}
	return overlayNames[k]
}

func ParseOverlayKind(name string) (OverlayKind, error) {
	for i, n := range overlayNames {
		if n == name {
			return OverlayKind(i), nil
		}
	}
	return OverlayNone, apperr.Validationf("unknown overlay %q", name)
}

func (k OverlayKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *OverlayKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseOverlayKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Overlay is the active overlay together with the entity it targets.
// Opening one replaces whatever was open before.
type Overlay struct {
	Kind    OverlayKind `json:"kind"`
	BoardID *uuid.UUID  `json:"board_id,omitempty"`
	TaskID  *uuid.UUID  `json:"task_id,omitempty"`
}

// Target is the entity an overlay is opened for.
type Target struct {
	BoardID uuid.UUID
	TaskID  uuid.UUID
}

// OpenOverlay returns the overlay for kind, checking that kind gets the
// target it needs.
func OpenOverlay(kind OverlayKind, target Target) (Overlay, error) {
	o := Overlay{Kind: kind}
	switch kind {
	case OverlayShareBoard, OverlayEditBoard:
		if target.BoardID == uuid.Nil {
			return Overlay{}, apperr.Validationf("%s needs a board", kind)
		}
		o.BoardID = &target.BoardID
	case OverlayEditTask, OverlayTaskDetail:
		if target.TaskID == uuid.Nil {
			return Overlay{}, apperr.Validationf("%s needs a task", kind)
		}
		o.TaskID = &target.TaskID
	case OverlayDelete:
		switch {
		case target.TaskID != uuid.Nil:
			o.TaskID = &target.TaskID
		case target.BoardID != uuid.Nil:
			o.BoardID = &target.BoardID
		default:
			return Overlay{}, apperr.Validationf("delete needs a board or a task")
		}
	case OverlayNone, OverlayFeedback, OverlayProfile, OverlayTeam, OverlayCoffee:
	default:
		return Overlay{}, apperr.Validationf("unknown overlay %d", int(kind))
	}
	return o, nil
}
