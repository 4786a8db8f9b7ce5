// Package integrators advances a [dynamo.System] by exactly one dt.
//
// Every method returns a [dynamo.StepResult]; failures are reported in the
// result with Method set to [dynamo.MethodFailed] and the caller's state is
// never written. The implicit collocation methods ([NewRadau5], [NewRadau3],
// [NewBDF1]) share one Newton driver and are the default for the coupled
// body and gas system. [RK45] and [RK4] remain for non-stiff comparisons.
package integrators
