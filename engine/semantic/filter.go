package semantic

import (
	pb "github.com/qdrant/go-client/qdrant"
)

// buildFilter compiles a structured Filter into a qdrant filter expression:
// per-field sub-expressions conjoined with AND, alternatives within a field
// as OR. Absent fields emit nothing. A zero filter compiles to nil.
func buildFilter(f Filter) *pb.Filter {
	if f.IsZero() {
		return nil
	}

	var must []*pb.Condition
	if c := keywordAnyOf("category", f.Categories); c != nil {
		must = append(must, c)
	}
	if c := keywordAnyOf("tags", f.Tags); c != nil {
		must = append(must, c)
	}
	if c := keywordAnyOf("jurisdiction", f.Jurisdictions); c != nil {
		must = append(must, c)
	}
	if c := keywordAnyOf("court", f.Courts); c != nil {
		must = append(must, c)
	}
	if c := integerAnyOf("year", f.Years); c != nil {
		must = append(must, c)
	}
	return &pb.Filter{Must: must}
}

// keywordAnyOf builds a condition matching any of the given keyword values.
func keywordAnyOf(key string, values []string) *pb.Condition {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return fieldMatch(key, values[0])
	}
	should := make([]*pb.Condition, len(values))
	for i, v := range values {
		should[i] = fieldMatch(key, v)
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Filter{
			Filter: &pb.Filter{Should: should},
		},
	}
}

// integerAnyOf builds a condition matching any of the given integer values.
func integerAnyOf(key string, values []int) *pb.Condition {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return intMatch(key, values[0])
	}
	should := make([]*pb.Condition, len(values))
	for i, v := range values {
		should[i] = intMatch(key, v)
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Filter{
			Filter: &pb.Filter{Should: should},
		},
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func intMatch(key string, value int) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Integer{Integer: int64(value)},
				},
			},
		},
	}
}
