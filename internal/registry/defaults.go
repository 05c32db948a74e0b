package registry

// Names of the built-in graph components the compiler wires on its own.
const (
	TrainingDataReader           = "TrainingDataReader"
	DomainReader                 = "DomainReader"
	StoryGraphReader             = "StoryGraphReader"
	TrackerGenerator             = "TrackerGenerator"
	StoryToTrainingDataConverter = "StoryToTrainingDataConverter"
	MessageToE2EFeatureConverter = "MessageToE2EFeatureConverter"
)

// Default returns a registry with the built-in graph components, NLU components and policies.
func Default() *Registry {
	r := New()

	// Graph components
	r.MustRegister(Descriptor{Name: TrainingDataReader, Ops: []Op{OpRead}})
	r.MustRegister(Descriptor{Name: DomainReader, Ops: []Op{OpRead}})
	r.MustRegister(Descriptor{Name: StoryGraphReader, Ops: []Op{OpRead}})
	r.MustRegister(Descriptor{Name: TrackerGenerator, Ops: []Op{OpGenerate}})
	r.MustRegister(Descriptor{Name: StoryToTrainingDataConverter, Ops: []Op{OpConvertForTraining}})
	r.MustRegister(Descriptor{Name: MessageToE2EFeatureConverter, Ops: []Op{OpConvert}})

	// NLU components
	r.MustRegister(Descriptor{Name: "WhitespaceTokenizer", Ops: []Op{OpProcessTrainingData}})
	r.MustRegister(Descriptor{Name: "RegexFeaturizer", Ops: []Op{OpTrain, OpProcessTrainingData}})
	r.MustRegister(Descriptor{Name: "LexicalSyntacticFeaturizer", Ops: []Op{OpTrain, OpProcessTrainingData}})
	r.MustRegister(Descriptor{Name: "CountVectorsFeaturizer", Ops: []Op{OpTrain, OpProcessTrainingData}})
	r.MustRegister(Descriptor{Name: "DIETClassifier", Ops: []Op{OpTrain}})
	r.MustRegister(Descriptor{Name: "ResponseSelector", Ops: []Op{OpTrain}})
	r.MustRegister(Descriptor{Name: "EntitySynonymMapper", Ops: []Op{OpTrain}})

	// Policies
	r.MustRegister(Descriptor{Name: "MemoizationPolicy", Ops: []Op{OpTrain}})
	r.MustRegister(Descriptor{Name: "RulePolicy", Ops: []Op{OpTrain}})
	r.MustRegister(Descriptor{Name: "TEDPolicy", Ops: []Op{OpTrain}, SupportsE2EFeatures: true})

	return r
}
