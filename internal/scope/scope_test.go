package scope

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/internal/assertion"
	"github.com/gnolang/tverify/internal/theorem"
	"github.com/gnolang/tverify/internal/translate"
)

func build(t *testing.T, src string) (*token.FileSet, *ast.File, *Node) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)
	root, errs := Build(fset, file)
	require.Empty(t, errs)
	return fset, file, root
}

func renderAll[N ast.Node](nodes []N) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = translate.Render(n)
	}
	return out
}

func TestNoAssertionsNoTheorems(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

var g = 1

type T struct{}

func (t T) M() {}

func f(n int) int {
	x := n
	for x > 0 {
		x--
	}
	return x
}
`)
	assert.Empty(t, root.Obligations())
	assert.Empty(t, root.Theorems(theorem.Config{}))

	require.Len(t, root.Children(), 2)
	assert.Equal(t, ClassGroup, root.Children()[0].Kind())
	assert.Equal(t, Function, root.Children()[1].Kind())
	assert.Equal(t, Loop, root.Children()[1].Children()[0].Kind())
}

func TestFunctionPostcondition(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func f(n int) int {
	requires(n > 0)
	ensures(result > n)
	return n + 1
}
`)
	obligations := root.Obligations()
	require.Len(t, obligations, 1)

	ob := obligations[0]
	assert.Equal(t, []string{"n > 0"}, renderAll(ob.Assumptions))
	assert.Empty(t, ob.Body)
	assert.Equal(t, "n+1 > n", translate.Render(ob.Goal))
	assert.Equal(t, "f: result > n", ob.Label)
	assert.Equal(t, theorem.Postcondition, ob.Kind)
	assert.Equal(t, []string{"n"}, ob.Vars)

	fn := root.Children()[0]
	assert.Equal(t, "f", fn.Name())
	assert.Equal(t, []string{"n"}, fn.Params())
	assert.Len(t, fn.Items(), 3)
	assert.Len(t, fn.Assertions(), 2)
	assert.Empty(t, fn.Statements())
	assert.Empty(t, fn.RequiredOfCaller())
	assert.Equal(t, []string{"n+1 > n"}, renderAll(fn.ProvedAtExit()))
}

func TestFunctionPostconditionEncoding(t *testing.T) {
	t.Parallel()
	fset, file, root := build(t, `package p

func f(n int) int {
	requires(n > 0)
	ensures(result > n)
	return n + 1
}
`)
	ths := root.Theorems(theorem.Config{Translator: translate.New(fset, file, translate.Options{})})
	require.Len(t, ths, 1)

	query, err := ths[0].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, "(declare-const n Val)\n(assert ((_ is VInt) n))\n")
	assert.Contains(t, query, "; requirements\n(assert (_truthy (_gt n (VInt 0))))\n")
	assert.Contains(t, query, "; post condition\n(assert (not (_truthy (_gt (_add n (VInt 1)) n))))\n")
	assert.True(t, strings.HasSuffix(query, "(check-sat)\n(get-value (n))\n"))
}

func TestResultVariableWithSeveralReturns(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func abs(x int) int {
	ensures(result >= 0)
	if x < 0 {
		return -x
	}
	return x
}
`)
	obligations := root.Obligations()
	require.Len(t, obligations, 1)
	assert.Equal(t, "result! >= 0", translate.Render(obligations[0].Goal))
	assert.Equal(t, "abs: result >= 0", obligations[0].Label)
	assert.Len(t, obligations[0].Body, 2)
}

func TestLoopObligations(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func sum(n int) int {
	requires(n >= 0)
	s := 0
	i := 0
	for i < n {
		invariant(i <= n)
		invariant(s >= 0)
		s = s + i
		i++
	}
	return s
}
`)
	fn := root.Children()[0]
	require.Len(t, fn.Children(), 1)
	loop := fn.Children()[0]

	assert.Equal(t, []string{"i <= n", "s >= 0"}, renderAll(loop.RequiredOfCaller()))
	assert.Equal(t, []string{"i <= n", "s >= 0", "i < n"}, renderAll(loop.AssumedOnEntry()))
	assert.Equal(t, "i < n", translate.Render(loop.Guard()))
	assert.Equal(t, []string{"n", "s", "i"}, loop.Vars())

	obligations := root.Obligations()
	require.Len(t, obligations, 4)

	for _, entry := range obligations[:2] {
		assert.Equal(t, theorem.EntryRequirement, entry.Kind)
		assert.Equal(t, []string{"n >= 0"}, renderAll(entry.Assumptions))
		assert.Equal(t, []string{"s := 0", "i := 0"}, renderAll(entry.Body))
	}
	assert.Equal(t, "loop entry: i <= n", obligations[0].Label)
	assert.Equal(t, "loop entry: s >= 0", obligations[1].Label)

	for _, inv := range obligations[2:] {
		assert.Equal(t, theorem.LoopInvariant, inv.Kind)
		assert.Equal(t, []string{"i <= n", "s >= 0", "i < n"}, renderAll(inv.Assumptions))
		assert.Equal(t, []string{"s = s + i", "i++"}, renderAll(inv.Body))
	}
	assert.Equal(t, "loop invariant: i <= n", obligations[2].Label)
}

func TestForLoopInitAndPost(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func count(n int) {
	for i := 0; i <= n; i++ {
		invariant(i >= 0)
	}
}
`)
	obligations := root.Obligations()
	require.Len(t, obligations, 2)
	assert.Equal(t, []string{"i := 0"}, renderAll(obligations[0].Body))
	assert.Equal(t, []string{"i++"}, renderAll(obligations[1].Body))
	assert.Equal(t, []string{"n", "i"}, obligations[1].Vars)
}

func TestLoopNestedInBranch(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func k(n int) {
	i := 0
	if n > 0 {
		j := 1
		for i < n {
			invariant(i >= 0)
			i++
		}
		_ = j
	}
}
`)
	loop := root.Children()[0].Children()[0]
	assert.Equal(t, []string{"i := 0", "assume!(n > 0)", "j := 1"}, renderAll(loop.EntryBody()))
}

func TestAsserts(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func g(x int) {
	y := x
	assert(y == x)
	if x > 0 {
		y = 1
		assert(y > 0)
	} else {
		assert(x <= 0)
	}
	y = 2
}
`)
	obligations := root.Obligations()
	require.Len(t, obligations, 3)

	assert.Equal(t, "assert: y == x", obligations[0].Label)
	assert.Equal(t, []string{"y := x"}, renderAll(obligations[0].Body))

	assert.Equal(t, "assert: y > 0", obligations[1].Label)
	assert.Equal(t, []string{"y := x", "assume!(x > 0)", "y = 1"}, renderAll(obligations[1].Body))

	assert.Equal(t, []string{"y := x", "assume!(!(x > 0))"}, renderAll(obligations[2].Body))
	for _, ob := range obligations {
		assert.Equal(t, theorem.Assert, ob.Kind)
	}

	fn := root.Children()[0]
	assert.Len(t, fn.Assertions(), 1)
	require.Len(t, fn.Statements(), 3)
	assert.IsType(t, &ast.IfStmt{}, fn.Statements()[1])
}

func TestMalformedAnnotations(t *testing.T) {
	t.Parallel()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", `package p

func h(x int) {
	assert(1, 2)
	if true {
		requires(false)
	}
	for {
		ensures(true)
	}
	assert(x > 0)
}

var _ = requires(true)
`, 0)
	require.NoError(t, err)

	root, errs := Build(fset, file)
	require.Len(t, errs, 4)
	for _, err := range errs {
		var malformed *assertion.MalformedError
		assert.True(t, errors.As(err, &malformed), err.Error())
	}

	// the remaining obligations are still extracted
	obligations := root.Obligations()
	require.Len(t, obligations, 1)
	assert.Equal(t, "assert: x > 0", obligations[0].Label)
}

func TestTypeGroupInvariants(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package bank

//verify:invariant a.Balance >= 0
type Account struct{ Balance int }

func (a *Account) Deposit(n int) {
	requires(n > 0)
	a.Balance = a.Balance + n
}

func NewAccount() *Account { return &Account{} }
`)
	require.Len(t, root.Children(), 2)
	group := root.Children()[0]
	assert.Equal(t, ClassGroup, group.Kind())
	assert.Equal(t, "Account", group.Name())
	assert.Equal(t, []string{"a.Balance >= 0"}, renderAll(group.Invariants()))
	assert.Empty(t, group.ProvedAtExit())
	assert.Equal(t, "initially", group.EntryLabel())

	obligations := root.Obligations()
	require.Len(t, obligations, 1)
	ob := obligations[0]
	assert.Equal(t, theorem.GroupInvariant, ob.Kind)
	assert.Equal(t, "Account.Deposit: a.Balance >= 0", ob.Label)
	assert.Equal(t, []string{"n > 0", "a.Balance >= 0"}, renderAll(ob.Assumptions))
	assert.Equal(t, []string{"a.Balance = a.Balance + n"}, renderAll(ob.Body))
	assert.Equal(t, []string{"a", "n"}, ob.Vars)
}

func TestTopLevelInvariants(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

var limit = 10
var _ = invariant(limit > 0)

func bump() {
	limit = limit + 1
}
`)
	assert.Equal(t, []string{"limit"}, root.Vars())

	obligations := root.Obligations()
	require.Len(t, obligations, 2)

	assert.Equal(t, "initially: limit > 0", obligations[0].Label)
	assert.Equal(t, theorem.Initially, obligations[0].Kind)
	assert.Empty(t, obligations[0].Assumptions)
	assert.Equal(t, []string{"var limit = 10"}, renderAll(obligations[0].Body))

	assert.Equal(t, "bump: limit > 0", obligations[1].Label)
	assert.Equal(t, theorem.Invariant, obligations[1].Kind)
	assert.Equal(t, []string{"limit > 0"}, renderAll(obligations[1].Assumptions))
}

func TestSkippedFunction(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

//verify:skip
func broken() {
	ensures(false)
}
`)
	assert.Empty(t, root.Children())
	assert.Empty(t, root.Obligations())
}

func TestFunctionLiteral(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func outer() {
	inc := func(x int) int {
		ensures(result > x)
		return x + 1
	}
	_ = inc
}
`)
	outer := root.Children()[0]
	require.Len(t, outer.Children(), 1)
	inc := outer.Children()[0]
	assert.Equal(t, "inc", inc.Name())
	assert.Equal(t, outer, inc.Parent())

	obligations := root.Obligations()
	require.Len(t, obligations, 1)
	assert.Equal(t, "inc: result > x", obligations[0].Label)
	assert.Equal(t, "x+1 > x", translate.Render(obligations[0].Goal))
	assert.Equal(t, []string{"inc", "x"}, obligations[0].Vars)
}

func TestFind(t *testing.T) {
	t.Parallel()
	_, _, root := build(t, `package p

func a() {}

func b() {
	for {
	}
}
`)
	found := root.Find(func(n *Node) bool { return n.Kind() == Function && n.Name() == "b" })
	require.NotNil(t, found)
	assert.Equal(t, "b", found.Name())
	assert.Nil(t, root.Find(func(n *Node) bool { return n.Name() == "c" }))
}

func TestTypeInvariantFollowsReceiverName(t *testing.T) {
	t.Parallel()
	fset, file, root := build(t, `package bank

//verify:invariant a.Balance >= 0
type Account struct{ Balance int }

func (acc *Account) Withdraw(n int) {
	requires(n <= acc.Balance)
	acc.Balance = acc.Balance - n
}

func (a *Account) Deposit(n int) {
	requires(n > 0)
	a.Balance = a.Balance + n
}
`)
	group := root.Children()[0]
	assert.Equal(t, []string{"a.Balance >= 0"}, renderAll(group.Invariants()))

	obligations := root.Obligations()
	require.Len(t, obligations, 2)

	withdraw := obligations[0]
	assert.Equal(t, "Account.Withdraw: acc.Balance >= 0", withdraw.Label)
	assert.Equal(t, []string{"n <= acc.Balance", "acc.Balance >= 0"}, renderAll(withdraw.Assumptions))
	assert.Equal(t, "acc.Balance >= 0", translate.Render(withdraw.Goal))

	deposit := obligations[1]
	assert.Equal(t, "Account.Deposit: a.Balance >= 0", deposit.Label)
	assert.Equal(t, []string{"n > 0", "a.Balance >= 0"}, renderAll(deposit.Assumptions))

	ths := root.Theorems(theorem.Config{Translator: translate.New(fset, file, translate.Options{})})
	query, err := ths[0].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, "(declare-const acc.Balance Val)")
	assert.NotContains(t, query, "declare-const a.Balance")
}

func TestCheckpointAfterConditionalReturn(t *testing.T) {
	t.Parallel()
	fset, file, root := build(t, `package p

func f(x int) int {
	if x < 0 {
		return 0
	}
	assert(x >= 0)
	i := x
	for i > 0 {
		invariant(i >= 0)
		i--
	}
	return x
}
`)
	ths := root.Theorems(theorem.Config{Translator: translate.New(fset, file, translate.Options{})})
	require.Len(t, ths, 3)

	assert.Equal(t, "assert: x >= 0", ths[0].Description())
	query, err := ths[0].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, "(define-fun !done@1 () Bool (ite (_truthy (_lt x (VInt 0))) true false))")
	assert.Contains(t, query, "; post condition\n(assert (and (not !done@1) (not (_truthy (_ge x (VInt 0))))))\n")

	assert.Equal(t, "loop entry: i >= 0", ths[1].Description())
	query, err = ths[1].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, "(define-fun i@1 () Val (ite !done@1 i x))")
	assert.Contains(t, query, "; post condition\n(assert (and (not !done@1) (not (_truthy (_ge i@1 (VInt 0))))))\n")

	// the loop body itself never returns early
	assert.Equal(t, "loop invariant: i >= 0", ths[2].Description())
	query, err = ths[2].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, "; post condition\n(assert (not (_truthy (_ge i@1 (VInt 0)))))\n")
}

func TestLoopSummaryKeepsInheritedInvariants(t *testing.T) {
	t.Parallel()
	fset, file, root := build(t, `package p

func f(n int) {
	s := 0
	invariant(s >= 0)
	for i := 0; i < n; i++ {
		s = s + 1
	}
}
`)
	loops := root.LoopInvariants()
	require.Len(t, loops, 1)
	for _, invs := range loops {
		assert.Equal(t, []string{"s >= 0"}, renderAll(invs))
	}

	tr := translate.New(fset, file, translate.Options{LoopInvariants: loops})
	ths := root.Theorems(theorem.Config{Translator: tr})
	require.Len(t, ths, 3)

	assert.Equal(t, "f: s >= 0", ths[0].Description())
	query, err := ths[0].Encode()
	require.NoError(t, err)
	assert.Contains(t, query, strings.Join([]string{
		"(declare-const s@2 Val)",
		"(declare-const i@2 Val)",
		"(assert (_truthy (_ge s@2 (VInt 0))))",
		"(assert (not (_truthy (_lt i@2 n))))",
	}, "\n"))
	assert.Contains(t, query, "; post condition\n(assert (not (_truthy (_ge s@2 (VInt 0)))))\n")
	assert.Contains(t, query, "(get-value (n s@2 i@2))")

	assert.Equal(t, "loop entry: s >= 0", ths[1].Description())
	assert.Equal(t, "loop invariant: s >= 0", ths[2].Description())
}
