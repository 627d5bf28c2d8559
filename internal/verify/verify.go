// Package verify builds every architecture and normalization combination and
// checks the structural contracts the rest of the module relies on: the type of
// the stem and probe normalization layers, and the size of the first batch a
// dataset loader yields.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/dataset"
	"github.com/born-ml/convnorm/internal/models"
	"github.com/born-ml/convnorm/internal/nn"
)

// ErrAssertion is wrapped by every failed check.
var ErrAssertion = errors.New("assertion failed")

// DefaultBatchSize is the batch size checked when Config.BatchSize is zero.
const DefaultBatchSize = 8

// vggProbeIndices are the Features positions of the first and last VGG16 norm.
var vggProbeIndices = [2]int{1, 41}

// Config selects what Run checks.
type Config struct {
	Architectures []models.Architecture
	Schemes       []nn.Scheme
	Datasets      []string
	BatchSize     int
	// SkipData disables the loader checks.
	SkipData bool
	// DataOptions are passed to dataset.Build.
	DataOptions []dataset.Option
}

// DefaultConfig checks VGG16 and ResNet50 with every scheme, and every
// enabled dataset with batches of DefaultBatchSize.
func DefaultConfig() Config {
	return Config{
		Architectures: []models.Architecture{models.VGG16, models.ResNet50},
		Schemes:       nn.Schemes(),
		Datasets:      dataset.Names(),
		BatchSize:     DefaultBatchSize,
	}
}

// Result is the outcome of one named check.
type Result struct {
	Name string
	Err  error
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool { return r.Err == nil }

// Report collects results in the order the checks ran.
type Report struct {
	Results []Result
}

func (r *Report) add(name string, err error) {
	r.Results = append(r.Results, Result{Name: name, Err: err})
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins the errors of every failed check, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
	}
	return errors.Join(errs...)
}

func (r Report) String() string {
	var sb strings.Builder
	for _, res := range r.Results {
		if res.Passed() {
			fmt.Fprintf(&sb, "PASS %s\n", res.Name)
		} else {
			fmt.Fprintf(&sb, "FAIL %s: %v\n", res.Name, res.Err)
		}
	}
	fmt.Fprintf(&sb, "%d checks, %d failed\n", len(r.Results), len(r.Failed()))
	return sb.String()
}

// Run performs every check selected by cfg. Zero fields of cfg take their
// DefaultConfig values.
func Run[B tensor.Backend](backend B, cfg Config) Report {
	def := DefaultConfig()
	if len(cfg.Architectures) == 0 {
		cfg.Architectures = def.Architectures
	}
	if len(cfg.Schemes) == 0 {
		cfg.Schemes = def.Schemes
	}
	if len(cfg.Datasets) == 0 {
		cfg.Datasets = def.Datasets
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = def.BatchSize
	}

	var report Report
	for _, arch := range cfg.Architectures {
		for _, scheme := range cfg.Schemes {
			name := fmt.Sprintf("network %s/%s", arch, scheme)
			report.add(name, CheckNetwork(arch, scheme, backend))
		}
	}
	if cfg.SkipData {
		return report
	}
	for _, ds := range cfg.Datasets {
		name := fmt.Sprintf("loader %s/batch=%d", ds, cfg.BatchSize)
		report.add(name, CheckLoader(ds, cfg.BatchSize, backend, cfg.DataOptions...))
	}
	return report
}

// CheckNetwork builds arch with scheme and checks that its stem and probe
// normalization layers are the layer type the scheme selects. For VGG16 it
// also checks that those layers sit at Features positions 1 and 41.
func CheckNetwork[B tensor.Backend](arch models.Architecture, scheme nn.Scheme, backend B) error {
	net, err := models.Build(arch, 10, scheme, backend)
	if err != nil {
		return err
	}

	if err := checkNorm("stem norm", net.StemNorm(), scheme); err != nil {
		return err
	}
	if err := checkNorm("probe norm", net.ProbeNorm(), scheme); err != nil {
		return err
	}

	if vgg, ok := net.(*models.VGG[B]); ok {
		hooks := [2]nn.Norm[B]{net.StemNorm(), net.ProbeNorm()}
		for i, idx := range vggProbeIndices {
			if m := vgg.Feature(idx); m != nn.Module[B](hooks[i]) {
				return fmt.Errorf("%w: features[%d] is %T, not the %s norm", ErrAssertion, idx, m, scheme)
			}
		}
	}
	return nil
}

// checkNorm reports whether norm has the concrete type of scheme.
func checkNorm[B tensor.Backend](what string, norm nn.Norm[B], scheme nn.Scheme) error {
	var ok bool
	switch norm.(type) {
	case *nn.Identity[B]:
		ok = scheme == nn.SchemeNone
	case *nn.BatchNorm2D[B]:
		ok = scheme == nn.SchemeBatch
	case *nn.GroupNorm2D[B]:
		ok = scheme == nn.SchemeGroup
	case *nn.GroupThenBatchNorm2D[B]:
		ok = scheme == nn.SchemeGroupThenBatch
	case *nn.BatchThenGroupNorm2D[B]:
		ok = scheme == nn.SchemeBatchThenGroup
	case *nn.ParallelGroupBatchNorm2D[B]:
		ok = scheme == nn.SchemeParallel
	}
	if !ok {
		return fmt.Errorf("%w: %s is %T, want the %s layer", ErrAssertion, what, norm, scheme)
	}
	return nil
}

// CheckLoader builds the loaders of a dataset and checks that the first
// training batch holds exactly batchSize samples.
func CheckLoader[B tensor.Backend](name string, batchSize int, backend B, opts ...dataset.Option) error {
	train, _, err := dataset.Build(name, batchSize, backend, opts...)
	if err != nil {
		return err
	}

	batch, ok := train.Next()
	if !ok {
		return fmt.Errorf("%w: %s yielded no batch", ErrAssertion, name)
	}
	if batch.Size != batchSize {
		return fmt.Errorf("%w: %s first batch has %d samples, want %d", ErrAssertion, name, batch.Size, batchSize)
	}
	if n := batch.Images.Shape()[0]; n != batchSize {
		return fmt.Errorf("%w: %s first batch images have leading dimension %d, want %d", ErrAssertion, name, n, batchSize)
	}
	return nil
}
