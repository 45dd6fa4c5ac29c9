package pipeline

import (
	"github.com/franckalain/plantcare/internal/models"
)

// Screen is what a camera screen should be showing.
type Screen string

const (
	ScreenCamera    Screen = "camera"    // viewfinder, capture button enabled
	ScreenAnalyzing Screen = "analyzing" // captured photo with a spinner
	ScreenResult    Screen = "result"    // classification result
	ScreenAlert     Screen = "alert"     // blocking alert, then back to camera
)

// View is the caller-owned UI state derived from an invocation.
type View struct {
	Screen   Screen                       `json:"screen"`
	State    State                        `json:"state"`
	PhotoURI string                       `json:"photo_uri,omitempty"`
	Result   *models.ClassificationResult `json:"result,omitempty"`
	Alert    string                       `json:"alert,omitempty"`
	// CanCapture is false while a run is in flight; the host UI uses it to
	// disable the capture trigger.
	CanCapture bool `json:"can_capture"`
}

// View returns the screen state for the invocation.
func (inv *Invocation) View() View {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	v := View{State: inv.state}
	if inv.photo != nil {
		v.PhotoURI = inv.photo.URI
	}
	switch inv.state {
	case Idle:
		v.Screen = ScreenCamera
		v.CanCapture = true
	case Capturing:
		v.Screen = ScreenCamera
	case Done:
		v.Screen = ScreenResult
		v.Result = inv.result
		v.CanCapture = true
	case Failed:
		v.CanCapture = true
		if IsCaptureError(inv.err) {
			v.Screen = ScreenCamera
		} else {
			v.Screen = ScreenAlert
			v.Alert = alertText(inv.err)
		}
	default:
		v.Screen = ScreenAnalyzing
	}
	return v
}

func alertText(err error) string {
	switch {
	case IsUploadError(err):
		return "Cannot upload"
	case IsClassificationError(err):
		return "Cannot analyze photo"
	case err != nil:
		return err.Error()
	}
	return ""
}
