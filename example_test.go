package intakeflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/dsl"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

type nameResult struct {
	Name string `json:"name"`
}

func (r nameResult) Facts() map[string]any {
	return map[string]any{"name": r.Name}
}

// ExampleNew_custom builds a two-node flow in code and drives it with one function call.
func ExampleNew_custom() {
	b := dsl.New("greeting")
	b.Add("ask_name").
		Task("Ask the caller for their name.").
		Function("record_name", "Store the caller's name",
			dsl.String("name", "The caller's name").Required())
	b.Add("goodbye").
		Task("Say goodbye to {{.name}}.").
		End()

	loader, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	eng, err := intakeflow.New(ctx,
		intakeflow.WithLoader(loader),
		intakeflow.WithHandlers(registry.Handler{
			Ref: "record_name",
			Fn: func(_ context.Context, call registry.Call) (domain.HandlerResult, error) {
				return domain.HandlerResult{
					Payload:    nameResult{Name: call.Args["name"].(string)},
					NextNodeID: "goodbye",
				}, nil
			},
			Next: []string{"goodbye"},
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	sess := eng.NewSession("demo")
	out, _ := sess.Initialize(ctx)
	fmt.Println(out.NodeID, "->", out.Messages[0].Content)

	_, err = sess.Invoke(ctx, "record_name", map[string]any{})
	fmt.Println(domain.Classify(err).Kind)

	out, _ = sess.Invoke(ctx, "record_name", map[string]any{"name": "Ada"})
	fmt.Println(out.NodeID, "->", out.Messages[0].Content, out.Ended)

	// Output:
	// ask_name -> Ask the caller for their name.
	// schema_validation
	// goodbye -> Say goodbye to Ada. true
}
