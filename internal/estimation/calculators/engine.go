package calculators

import "github.com/wm2snap/migrator/internal/estimation"

// NewDefaultEngine returns an engine with the calculators registered in priority order:
// no history, similar-size median, regression, conservative fallback.
func NewDefaultEngine() *estimation.Engine {
	engine := estimation.NewEngine()
	engine.Register(NewSizeBased())
	engine.Register(NewHistoricalMedian())
	engine.Register(NewRegression())
	engine.Register(NewConservativeSizeBased())
	return engine
}
