package mongostore

import (
	"fmt"

	"github.com/lyzr/chainquery/common/plan"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Pipeline compiles p into one aggregation pipeline to run against the base
// collection. Every source gets the chain field before it enters the
// union, and all later stages run once on the unioned stream.
func Pipeline(p *plan.Plan) (mongo.Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	base := p.Base()
	pipeline := mongo.Pipeline{chainStage(base.Chain)}

	for _, src := range p.Unions() {
		pipeline = append(pipeline, bson.D{{Key: "$unionWith", Value: bson.D{
			{Key: "coll", Value: src.Collection},
			{Key: "pipeline", Value: bson.A{chainStage(src.Chain)}},
		}}})
	}

	if j := p.Join; j != nil {
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: j.From},
				{Key: "localField", Value: j.LocalField},
				{Key: "foreignField", Value: j.ForeignField},
				{Key: "as", Value: j.As},
			}}},
			// $unwind without preserveNullAndEmptyArrays drops unmatched rows
			bson.D{{Key: "$unwind", Value: "$" + j.As}},
		)
	}

	if p.Match != nil && len(p.Match.Any) > 0 {
		or := make(bson.A, 0, len(p.Match.Any))
		for _, pred := range p.Match.Any {
			cond, err := predicate(pred)
			if err != nil {
				return nil, err
			}
			or = append(or, cond)
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: or}}}})
	}

	if len(p.Sort) > 0 {
		keys := make(bson.D, 0, len(p.Sort))
		for _, key := range p.Sort {
			dir := 1
			if key.Desc {
				dir = -1
			}
			keys = append(keys, bson.E{Key: key.Field, Value: dir})
		}
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: keys}})
	}

	if p.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: p.Skip}})
	}
	if p.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: p.Limit}})
	}

	return pipeline, nil
}

func chainStage(chain string) bson.D {
	return bson.D{{Key: "$addFields", Value: bson.D{{Key: plan.FieldChain, Value: chain}}}}
}

func predicate(pred plan.Predicate) (bson.D, error) {
	switch pred.Op {
	case plan.OpRegex:
		pattern, _ := pred.Value.(string)
		re := bson.Regex{Pattern: pattern}
		if pred.CaseInsensitive {
			re.Options = "i"
		}
		return bson.D{{Key: pred.Field, Value: re}}, nil
	case plan.OpEq:
		return bson.D{{Key: pred.Field, Value: pred.Value}}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", pred.Op)
}
