package e2e

import (
	"github.com/cucumber/godog"

	"sapp/e2e/steps/common"
	"sapp/e2e/steps/credential"
	"sapp/e2e/steps/scan"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	credential.RegisterSteps(ctx, tc)
	scan.RegisterSteps(ctx, tc)
}
