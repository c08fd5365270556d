package card

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"beancard/internal/logger"
)

// Debugger receives intermediate images for human inspection. It never
// influences what Locate returns.
type Debugger interface {
	Show(label, stage string, m gocv.Mat)
	Wait()
}

// WindowDebugger shows each stage in an OpenCV window and blocks on a key
// press at every Wait.
type WindowDebugger struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
}

func NewWindowDebugger() *WindowDebugger {
	return &WindowDebugger{windows: make(map[string]*gocv.Window)}
}

func (d *WindowDebugger) Show(label, stage string, m gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[stage]
	if !ok {
		w = gocv.NewWindow(stage)
		d.windows[stage] = w
	}
	logger.DebugLog("[debug]: showing %s for %s", stage, label)
	w.IMShow(m)
}

func (d *WindowDebugger) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	// waitKey is global to highgui, any open window will do
	for _, w := range d.windows {
		w.WaitKey(0)
		break
	}
}

func (d *WindowDebugger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for stage, w := range d.windows {
		w.Close()
		delete(d.windows, stage)
	}
	return nil
}

// DebugMarker is part of every file name DirDebugger writes, so directory
// walks can skip them.
const DebugMarker = ".debug."

// DirDebugger writes each stage as <label>.debug.<stage>.png into Dir.
type DirDebugger struct {
	Dir string
}

func NewDirDebugger(dir string) (*DirDebugger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating debug directory: %w", err)
	}
	return &DirDebugger{Dir: dir}, nil
}

func (d *DirDebugger) Show(label, stage string, m gocv.Mat) {
	base := strings.TrimSuffix(filepath.Base(label), filepath.Ext(label))
	path := filepath.Join(d.Dir, base+DebugMarker+stage+".png")
	if ok := gocv.IMWrite(path, m); !ok {
		logger.DebugLog("[debug]: failed to write %s", path)
	}
}

func (d *DirDebugger) Wait() {}
