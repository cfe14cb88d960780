package policy

// QualityInputs summarizes a retrieval outcome for the post-execution gate.
type QualityInputs struct {
	// ResultCount is the number of retrieved items handed to the generator.
	ResultCount int
	// AverageScore is the mean similarity/confidence of retrieved items,
	// already in [0,1].
	AverageScore float64
	// ContextLength is the character length of the assembled context.
	ContextLength int
}

const (
	// fullCountResults is the result count at which the count signal saturates.
	fullCountResults = 5
	// fullContextChars is the context length at which the length signal saturates.
	fullContextChars = 2000
)

// Quality computes the composite quality score: result count, average score
// and context length each mapped into [0,1] and averaged.
func Quality(in QualityInputs) float64 {
	countScore := float64(in.ResultCount) / fullCountResults
	if countScore > 1 {
		countScore = 1
	}

	avgScore := in.AverageScore
	if avgScore > 1 {
		avgScore = 1
	}
	if avgScore < 0 {
		avgScore = 0
	}

	lengthScore := float64(in.ContextLength) / fullContextChars
	if lengthScore > 1 {
		lengthScore = 1
	}

	return (countScore + avgScore + lengthScore) / 3
}
