// Package detector locates license plates in frames with a YOLO style
// TensorFlow Lite model.
package detector

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/cpuspec"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/observability/metrics"
)

// Detection is one plate region in frame coordinates.
type Detection struct {
	Box        image.Rectangle
	Confidence float32
	ClassID    int
}

// Detector runs the plate detection model. It is safe for concurrent use;
// invocations are serialized on the interpreter.
type Detector struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	inputW      int
	inputH      int
	layout      outputLayout

	// Quantized outputs are dequantized into outBuf before decoding.
	outType  tflite.TensorType
	outQuant tflite.QuantizationParams
	outBuf   []float32

	threshold float32
	iou       float64
	marginX   float64
	marginY   float64

	metrics *metrics.DetectorMetrics
}

// New loads the model at settings.ModelPath and allocates its tensors.
// m may be nil.
func New(settings *conf.DetectorSettings, m *metrics.DetectorMetrics) (*Detector, error) {
	start := time.Now()
	d, err := load(settings)
	if m != nil {
		m.RecordModelLoad(err)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryModelInit).
			ModelContext(settings.ModelPath).
			Timing("model-load", time.Since(start)).
			Build()
	}
	d.metrics = m
	return d, nil
}

func load(settings *conf.DetectorSettings) (*Detector, error) {
	modelData, err := os.ReadFile(settings.ModelPath)
	if err != nil {
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryModelLoad).
			ModelContext(settings.ModelPath).
			FileContext(settings.ModelPath, 0).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model")
	}

	threads := cpuspec.ThreadCount(settings.Threads)
	options := tflite.NewInterpreterOptions()

	log := GetLogger()
	if settings.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: bounded by CPU count
		if delegate == nil {
			log.Warn("failed to create XNNPACK delegate, falling back to default CPU")
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.NumDims() != 4 || input.Dim(3) != 3 {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("unsupported model input, want [1,H,W,3]")
	}

	output := interpreter.GetOutputTensor(0)
	dims := make([]int, output.NumDims())
	for i := range dims {
		dims[i] = output.Dim(i)
	}
	layout, ok := newOutputLayout(dims)
	if !ok {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("unsupported model output shape %v", dims)
	}
	switch output.Type() {
	case tflite.Float32, tflite.UInt8, tflite.Int8:
	default:
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("unsupported output tensor type %v", output.Type())
	}

	d := &Detector{
		model:       model,
		interpreter: interpreter,
		inputH:      input.Dim(1),
		inputW:      input.Dim(2),
		layout:      layout,
		outType:     output.Type(),
		outQuant:    output.QuantizationParams(),
		threshold:   float32(settings.Threshold),
		iou:         settings.IoU,
		marginX:     settings.MarginX,
		marginY:     settings.MarginY,
	}

	log.Info("plate detection model loaded",
		logger.String("model", settings.ModelPath),
		logger.Int("input_width", d.inputW),
		logger.Int("input_height", d.inputH),
		logger.Int("anchors", layout.anchors),
		logger.Int("classes", layout.channels-4),
		logger.Int("threads", threads))

	return d, nil
}

// Detect returns the plate boxes in img scoring at or above the configured
// threshold, sorted by descending confidence. Each box is padded by the
// configured margins and clamped to the image; empty boxes are dropped.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.Newf("empty image").
			Component("detector").
			Category(errors.CategoryImage).
			Build()
	}

	padded, lb := toModel(img, d.inputW, d.inputH)

	start := time.Now()
	cands, err := d.invoke(padded)
	elapsed := time.Since(start)
	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordInvoke(elapsed.Seconds(), nil, err)
		}
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryInference).
			Timing("invoke", elapsed).
			Build()
	}

	detections := make([]Detection, 0, len(cands))
	confidences := make([]float32, 0, len(cands))
	for _, c := range nms(cands, d.iou) {
		box := expand(lb.toFrame(c.x1, c.y1, c.x2, c.y2, bounds), d.marginX, d.marginY, bounds)
		if box.Empty() {
			continue
		}
		detections = append(detections, Detection{Box: box, Confidence: c.score, ClassID: c.class})
		confidences = append(confidences, c.score)
	}

	if d.metrics != nil {
		d.metrics.RecordInvoke(elapsed.Seconds(), confidences, nil)
	}
	return detections, nil
}

// Best returns the highest scoring detection. ok is false when nothing
// passed the threshold.
func (d *Detector) Best(img image.Image) (best Detection, ok bool, err error) {
	detections, err := d.Detect(img)
	if err != nil || len(detections) == 0 {
		return Detection{}, false, err
	}
	return detections[0], true, nil
}

// invoke fills the input tensor, runs the model and decodes its output.
func (d *Detector) invoke(padded *image.NRGBA) ([]candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interpreter == nil {
		return nil, fmt.Errorf("detector is closed")
	}

	input := d.interpreter.GetInputTensor(0)
	switch input.Type() {
	case tflite.Float32:
		fillFloat32(input.Float32s(), padded)
	case tflite.UInt8:
		fillUint8(input.UInt8s(), padded)
	default:
		return nil, fmt.Errorf("unsupported input tensor type %v", input.Type())
	}

	if status := d.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	output := d.interpreter.GetOutputTensor(0)
	var out []float32
	switch d.outType {
	case tflite.UInt8:
		d.outBuf = dequantizeUint8(d.outBuf, output.UInt8s(), d.outQuant)
		out = d.outBuf
	case tflite.Int8:
		d.outBuf = dequantizeInt8(d.outBuf, output.Int8s(), d.outQuant)
		out = d.outBuf
	default:
		out = output.Float32s()
	}
	return decode(out, d.layout, d.inputW, d.inputH, d.threshold), nil
}

// dequantizeUint8 maps quantized values to real ones, reusing dst.
func dequantizeUint8(dst []float32, src []uint8, q tflite.QuantizationParams) []float32 {
	dst = dst[:0]
	for _, v := range src {
		dst = append(dst, float32(q.Scale*float64(int(v)-q.ZeroPoint)))
	}
	return dst
}

func dequantizeInt8(dst []float32, src []int8, q tflite.QuantizationParams) []float32 {
	dst = dst[:0]
	for _, v := range src {
		dst = append(dst, float32(q.Scale*float64(int(v)-q.ZeroPoint)))
	}
	return dst
}

// fillFloat32 writes RGB pixels scaled to [0,1] in NHWC order.
func fillFloat32(dst []float32, img *image.NRGBA) {
	i := 0
	for p := 0; p+3 < len(img.Pix) && i+2 < len(dst); p += 4 {
		dst[i] = float32(img.Pix[p]) / 255
		dst[i+1] = float32(img.Pix[p+1]) / 255
		dst[i+2] = float32(img.Pix[p+2]) / 255
		i += 3
	}
}

// fillUint8 writes raw RGB pixels in NHWC order for quantized models.
func fillUint8(dst []uint8, img *image.NRGBA) {
	i := 0
	for p := 0; p+3 < len(img.Pix) && i+2 < len(dst); p += 4 {
		dst[i], dst[i+1], dst[i+2] = img.Pix[p], img.Pix[p+1], img.Pix[p+2]
		i += 3
	}
}

// Close releases the interpreter and model.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interpreter != nil {
		d.interpreter.Delete()
		d.interpreter = nil
	}
	if d.model != nil {
		d.model.Delete()
		d.model = nil
	}
	if d.metrics != nil {
		d.metrics.SetModelUnloaded()
	}
}
