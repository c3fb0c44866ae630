package stream

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

const dataURLPrefix = "data:image/jpeg;base64,"

// remoteIDs maps catalog exercise ids onto the trainer service's vocabulary.
var remoteIDs = map[string]string{
	"push-up":           "pushups",
	"squat":             "squats",
	"bicep-curl":        "bicepcurls",
	"lunges":            "lunges",
	"crunches":          "crunches",
	"tricep-dips":       "tricepdips",
	"jumping-jacks":     "jumpingjacks",
	"plank":             "plank",
	"step-ups":          "stepup",
	"wall-sits":         "wallsits",
	"calf-raises":       "calfraise",
	"mountain-climbers": "mountainclimbers",
	"jump-rope":         "jumprope",
	"high-knees":        "highknee",
	"butt-kicks":        "buttkicks",
}

// RemoteExerciseID translates an exercise id for the trainer service. Unknown
// ids pass through unchanged.
func RemoteExerciseID(id string) string {
	if r, ok := remoteIDs[id]; ok {
		return r
	}
	return id
}

// Feedback is one inbound update from the trainer service.
type Feedback struct {
	Count    int
	HasCount bool
	Status   string
	// Frame is the annotated image as a data URL, empty when absent.
	Frame string
}

type inbound struct {
	Count    *float64 `json:"count"`
	Status   string   `json:"status"`
	Feedback string   `json:"feedback"`
	Error    string   `json:"error"`
	Frame    *string  `json:"frame"`
}

var errEmptyMessage = errors.New("empty message")

// ParseFeedback decodes an inbound message.
func ParseFeedback(data []byte) (Feedback, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Feedback{}, errEmptyMessage
	}
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Feedback{}, fmt.Errorf("decoding feedback: %w", err)
	}

	var fb Feedback
	if in.Count != nil {
		if *in.Count < 0 || math.IsNaN(*in.Count) {
			return Feedback{}, fmt.Errorf("invalid count %v", *in.Count)
		}
		fb.Count = int(*in.Count)
		fb.HasCount = true
	}

	switch {
	case in.Feedback != "":
		fb.Status = in.Feedback
	case in.Status != "":
		fb.Status = in.Status
	case in.Error != "":
		fb.Status = in.Error
	case fb.HasCount:
		fb.Status = fmt.Sprintf("Reps: %d", fb.Count)
	}

	if in.Frame != nil && *in.Frame != "" {
		fb.Frame = *in.Frame
		if !strings.HasPrefix(fb.Frame, "data:") {
			fb.Frame = dataURLPrefix + fb.Frame
		}
	}
	return fb, nil
}

type outbound struct {
	Frame string `json:"frame"`
}

// EncodeFrame mirrors img horizontally to match the on-screen preview and
// returns the outbound JSON payload carrying it as a JPEG data URL.
func EncodeFrame(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.FlipH(img), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return json.Marshal(outbound{Frame: dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())})
}
