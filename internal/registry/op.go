package registry

import "fmt"

// Op identifies the operation a task invokes on its implementation.
type Op int

const (
	OpRead                Op = iota + 1 // Load a source artifact (training data, domain, stories)
	OpGenerate                          // Generate trackers from domain and stories
	OpTrain                             // Fit a persisted resource
	OpProcessTrainingData               // Transform the training data stream
	OpConvertForTraining                // Convert stories into NLU training data
	OpConvert                           // Convert processed messages into an E2E feature lookup
)

var opNames = map[Op]string{
	OpRead:                "read",
	OpGenerate:            "generate",
	OpTrain:               "train",
	OpProcessTrainingData: "process_training_data",
	OpConvertForTraining:  "convert_for_training",
	OpConvert:             "convert",
}

// String returns the wire name of the operation.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp resolves a wire name back to its Op.
func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	if _, ok := opNames[o]; !ok {
		return nil, fmt.Errorf("cannot marshal %s", o)
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(text []byte) error {
	op, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
