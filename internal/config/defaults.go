package config

// DefaultSettings returns the built-in tool settings.
func DefaultSettings() *Settings {
	return &Settings{
		Project:     ".",
		Concurrency: 4,
	}
}

// DefaultRecipe returns the stock recipe: a sparse-feature NLU pipeline and
// memoization, TED and rule policies.
func DefaultRecipe() *Recipe {
	return &Recipe{
		Pipeline: []Component{
			{"name": "WhitespaceTokenizer"},
			{"name": "RegexFeaturizer"},
			{"name": "LexicalSyntacticFeaturizer"},
			{"name": "CountVectorsFeaturizer"},
			{
				"name":      "CountVectorsFeaturizer",
				"analyzer":  "char_wb",
				"min_ngram": 1,
				"max_ngram": 4,
			},
			{
				"name":                   "DIETClassifier",
				"epochs":                 100,
				"constrain_similarities": true,
			},
			{"name": "EntitySynonymMapper"},
			{
				"name":                   "ResponseSelector",
				"epochs":                 100,
				"constrain_similarities": true,
			},
		},
		Policies: []Component{
			{"name": "MemoizationPolicy"},
			{
				"name":                   "TEDPolicy",
				"max_history":            5,
				"epochs":                 100,
				"constrain_similarities": true,
			},
			{"name": "RulePolicy"},
		},
	}
}
