package strategies

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

const testLibrary = `
species:
  - id: veldrin
    name: Veldrin
    blurb: Fen-born wanderers.
    cultures: [fenway]
  - id: korrath
    name: Korrath
    karma: 50
    cultures: [fenway]
cultures:
  - id: fenway
    prefixes: [Mar, Vel, Tor]
    suffixes: [in, eth, ak]
parts:
  - id: tail
    name: Vestigial tail
    phase: remove
    species: [veldrin]
  - id: horns
    name: Ridged horns
    phase: replace
    species: [korrath]
  - id: brand
    name: Old brand
    phase: scars
kits:
  - id: wanderer
    name: Wanderer's kit
    detail: Bedroll, flint, a week of hardtack.
    coin: 40
boosts:
  - attribute: might
    base: 10
  - attribute: wit
    base: 12
formulas:
  - name: boost-cost
    expr: base * boosts * boosts
`

func testProvider(t *testing.T) *content.Provider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(testLibrary), 0o644); err != nil {
		t.Fatalf("write library: %v", err)
	}
	provider, err := content.NewProvider(path)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return provider
}

func singleCost(t *testing.T, costs []resource.Cost, kind resource.Kind, amount int) {
	t.Helper()
	if len(costs) != 1 {
		t.Fatalf("want one cost, got %v", costs)
	}
	if costs[0].Kind != kind || costs[0].Amount != amount {
		t.Fatalf("want %d %s, got %v", amount, kind, costs[0])
	}
}

func TestSpeciesMenuSelectionAndKarmaCost(t *testing.T) {
	provider := testProvider(t)
	impl := newSpeciesMenu(provider, strategy.NewBlob())
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	if reply := sess.Submit("dragon"); sess.Done() {
		t.Fatalf("unknown token completed the session: %q", reply)
	}
	if costs := impl.CurrentCosts(rec); costs != nil {
		t.Fatalf("cost before any selection: %v", costs)
	}

	sess.Submit("korrath")
	if !sess.Done() {
		t.Fatal("valid id did not complete the session")
	}
	if id, _ := rec.Selection(stage.Species).String("species"); id != "korrath" {
		t.Fatalf("selection = %q", id)
	}
	singleCost(t, impl.CurrentCosts(rec), resource.Karma, 50)

	// Re-selecting by number replaces the payload and the cost with it.
	sess = impl.NewSession(rec)
	sess.Submit("1")
	if id, _ := rec.Selection(stage.Species).String("species"); id != "veldrin" {
		t.Fatalf("selection after renumber = %q", id)
	}
	if costs := impl.CurrentCosts(rec); costs != nil {
		t.Fatalf("veldrin should be free, got %v", costs)
	}
}

func TestSpeciesDestinedRerollBudget(t *testing.T) {
	provider := testProvider(t)
	impl := newSpeciesDestined(provider, strategy.NewBlob())
	impl.roll = func(int) int { return 1 } // always korrath
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	sess.Submit("reroll")
	sess.Submit("reroll")
	if reply := sess.Submit("reroll"); !strings.Contains(reply, "No rerolls") {
		t.Fatalf("third reroll allowed: %q", reply)
	}
	sess.Submit("keep")
	if !sess.Done() {
		t.Fatal("keep did not complete the session")
	}
	if id, _ := rec.Selection(stage.Species).String("species"); id != "korrath" {
		t.Fatalf("selection = %q", id)
	}
	if costs := impl.CurrentCosts(rec); costs != nil {
		t.Fatalf("destined species should be free, got %v", costs)
	}
}

func TestPointBuyFormulaCosts(t *testing.T) {
	provider := testProvider(t)
	impl := newPointBuy(provider, strategy.NewBlob())
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	sess.Submit("boost might")
	sess.Submit("boost might")
	sess.Submit("boost might")
	// base 10, three boosts: 10 * 3 * 3.
	singleCost(t, impl.CurrentCosts(rec), resource.Karma, 90)

	if reply := sess.Submit("boost might"); !strings.Contains(reply, "limit") {
		t.Fatalf("fourth boost allowed past the limit: %q", reply)
	}

	sess.Submit("drop might")
	singleCost(t, impl.CurrentCosts(rec), resource.Karma, 40)

	sess.Submit("done")
	if !sess.Done() {
		t.Fatal("done did not complete the session")
	}
}

func TestPointBuyDoneWithoutBoostsStoresEmptyPayload(t *testing.T) {
	provider := testProvider(t)
	impl := newPointBuy(provider, strategy.NewBlob())
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	sess.Submit("done")
	sel := rec.Selection(stage.Attributes)
	if sel == nil {
		t.Fatal("no payload stored for an empty point-buy")
	}
	if counts := sel.Counts("boosts"); len(counts) != 0 {
		t.Fatalf("expected no boosts, got %v", counts)
	}
	if costs := impl.CurrentCosts(rec); costs != nil {
		t.Fatalf("empty point-buy should cost nothing, got %v", costs)
	}
}

func TestSculptSkipsPhasesWithNoEligibleParts(t *testing.T) {
	provider := testProvider(t)
	impl := newSculpt(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec)
	if got := sess.Render(); !strings.Contains(got, "remove") {
		t.Fatalf("expected to start in the remove phase, got:\n%s", got)
	}
	sess.Submit("1") // vestigial tail
	// Veldrin has no replace parts, so next lands on scars.
	if reply := sess.Submit("next"); !strings.Contains(reply, "scars") {
		t.Fatalf("expected to skip to scars, got: %q", reply)
	}
	sess.Submit("1") // old brand
	sess.Submit("next")
	if !sess.Done() {
		t.Fatal("flow did not complete after the last non-empty phase")
	}

	sel := rec.Selection(stage.Body)
	if got := sel.Strings("remove"); len(got) != 1 || got[0] != "tail" {
		t.Fatalf("remove picks = %v", got)
	}
	if got := sel.Strings("scars"); len(got) != 1 || got[0] != "brand" {
		t.Fatalf("scars picks = %v", got)
	}
	if _, ok := sel["replace"]; ok {
		t.Fatal("empty replace phase should not appear in the payload")
	}
}

func TestSculptBackReturnsToEarlierPhase(t *testing.T) {
	provider := testProvider(t)
	impl := newSculpt(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec)
	if reply := sess.Submit("back"); !strings.Contains(reply, "no earlier") {
		t.Fatalf("back from the first phase should refuse: %q", reply)
	}
	sess.Submit("next") // remove -> scars
	if reply := sess.Submit("back"); !strings.Contains(reply, "remove") {
		t.Fatalf("back did not return to remove: %q", reply)
	}
}

func TestSculptFilterNarrowsOptions(t *testing.T) {
	provider := testProvider(t)
	impl := newSculpt(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec)
	if got := sess.Submit("filter horns"); strings.Contains(got, "Vestigial tail") {
		t.Fatalf("filter did not narrow the list:\n%s", got)
	}
	if got := sess.Submit("clear"); !strings.Contains(got, "Vestigial tail") {
		t.Fatalf("clear did not restore the list:\n%s", got)
	}
}

func TestCultureNameValidationAndSuggestions(t *testing.T) {
	provider := testProvider(t)
	impl := newCultureName(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec)
	if reply := sess.Submit("ab"); !strings.Contains(reply, "at least") {
		t.Fatalf("short name accepted: %q", reply)
	}
	if reply := sess.Submit("marek7"); !strings.Contains(reply, "only letters") {
		t.Fatalf("digit accepted: %q", reply)
	}
	if reply := sess.Submit("a-name-too-long-to-carry"); !strings.Contains(reply, "at most") {
		t.Fatalf("overlong name accepted: %q", reply)
	}
	sess.Submit("marek")
	if !sess.Done() {
		t.Fatal("valid name did not complete the session")
	}
	if name, _ := rec.Selection(stage.Name).String("name"); name != "Marek" {
		t.Fatalf("name not title-cased: %q", name)
	}
}

func TestCultureNameSuggestionPick(t *testing.T) {
	provider := testProvider(t)
	impl := newCultureName(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec).(*nameSession)
	// Five distinct prefix/suffix pairs; the single-culture roll is constant.
	pairs := []int{0, 0, 0, 1, 0, 2, 1, 0, 1, 1}
	i := 0
	sess.roll = func(n int) int {
		if n == 1 {
			return 0
		}
		v := pairs[i%len(pairs)]
		i++
		return v
	}
	sess.reshuffle()
	first := sess.suggestions[0]
	sess.Submit("1")
	if !sess.Done() {
		t.Fatal("suggestion pick did not complete the session")
	}
	if name, _ := rec.Selection(stage.Name).String("name"); name != first {
		t.Fatalf("stored %q, suggested %q", name, first)
	}
}

func TestCultureNameSuggestionsFromSparseCulture(t *testing.T) {
	// One prefix and two suffixes is valid content but yields only two
	// distinct names; the session must still open with a short list.
	lib := `
species:
  - id: veldrin
    name: Veldrin
    cultures: [thin]
cultures:
  - id: thin
    prefixes: [Mar]
    suffixes: [in, eth]
`
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(lib), 0o644); err != nil {
		t.Fatalf("write library: %v", err)
	}
	provider, err := content.NewProvider(path)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	impl := newCultureName(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec).(*nameSession)
	if len(sess.suggestions) == 0 || len(sess.suggestions) > 2 {
		t.Fatalf("suggestions = %v", sess.suggestions)
	}
	seen := map[string]bool{}
	for _, name := range sess.suggestions {
		if name != "Marin" && name != "Mareth" {
			t.Fatalf("unexpected suggestion %q", name)
		}
		if seen[name] {
			t.Fatalf("duplicate suggestion %q in %v", name, sess.suggestions)
		}
		seen[name] = true
	}
	if reply := sess.Submit("shuffle"); !strings.Contains(reply, "Suggestions") {
		t.Fatalf("shuffle reply: %q", reply)
	}
}

func TestCultureNameCapitalizesMultibyteInitial(t *testing.T) {
	provider := testProvider(t)
	impl := newCultureName(provider, strategy.NewBlob())
	rec := application.New("ava")
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})

	sess := impl.NewSession(rec)
	sess.Submit("óthren")
	if !sess.Done() {
		t.Fatal("valid name did not complete the session")
	}
	if name, _ := rec.Selection(stage.Name).String("name"); name != "Óthren" {
		t.Fatalf("name = %q", name)
	}
}

func TestBackgroundSimpleCapture(t *testing.T) {
	impl := newBackgroundSimple(strategy.NewBlob())
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	sess.Submit("Born in the fens.")
	sess.Submit("Raised by eels.")
	sess.Submit(".")
	if !sess.Done() {
		t.Fatal("terminator did not complete the capture")
	}
	story, _ := rec.Selection(stage.Background).String("story")
	if story != "Born in the fens.\nRaised by eels." {
		t.Fatalf("story = %q", story)
	}
	if costs := impl.CurrentCosts(rec); costs != nil {
		t.Fatalf("simple background should be free, got %v", costs)
	}
}

func TestBackgroundCaptureAbortStoresEmptyStory(t *testing.T) {
	impl := newBackgroundSimple(strategy.NewBlob())
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	sess.Submit("A false start.")
	sess.Submit("@abort")
	if !sess.Done() {
		t.Fatal("abort did not complete the capture")
	}
	if story, _ := rec.Selection(stage.Background).String("story"); story != "" {
		t.Fatalf("aborted capture stored %q", story)
	}
}

func TestBackgroundCostedFee(t *testing.T) {
	impl, err := newBackgroundCosted(strategy.NewBlob())
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	sess.Submit("One line.")
	sess.Submit("Two lines.")
	sess.Submit("Three lines.")
	sess.Submit(".")
	// Default fee is a flat 25 coin regardless of length.
	singleCost(t, impl.CurrentCosts(rec), resource.Coin, 25)

	if _, err := impl.Set("fee", "10 + lines * 5"); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	singleCost(t, impl.CurrentCosts(rec), resource.Coin, 25) // 10 + 3*5

	if _, err := impl.Set("fee", "lines +"); err == nil {
		t.Fatal("malformed fee accepted")
	}
	if _, err := impl.Set("fee", "gold * 2"); err == nil {
		t.Fatal("fee over an unknown variable accepted")
	}
}

func TestGearKitsSelection(t *testing.T) {
	provider := testProvider(t)
	impl := newGearKits(provider, strategy.NewBlob())
	rec := application.New("ava")

	sess := impl.NewSession(rec)
	if reply := sess.Submit("info 1"); !strings.Contains(reply, "hardtack") {
		t.Fatalf("info did not show the manifest: %q", reply)
	}
	sess.Submit("wanderer")
	if !sess.Done() {
		t.Fatal("kit pick did not complete the session")
	}
	singleCost(t, impl.CurrentCosts(rec), resource.Coin, 40)

	// "none" is a valid completion that clears the cost.
	sess = impl.NewSession(rec)
	sess.Submit("none")
	if costs := impl.CurrentCosts(rec); costs != nil {
		t.Fatalf("empty-handed gear should cost nothing, got %v", costs)
	}
}

func TestRegisterDefaultsCoversEveryStage(t *testing.T) {
	provider := testProvider(t)
	reg := strategy.NewRegistry()
	if err := RegisterDefaults(reg, provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ActivateDefaults(reg); err != nil {
		t.Fatalf("activate: %v", err)
	}
	for _, s := range stage.All() {
		impl, ok := reg.Active(s)
		if !ok {
			t.Fatalf("no active implementation for %s", s)
		}
		if impl.Stage() != s {
			t.Fatalf("active for %s reports stage %s", s, impl.Stage())
		}
	}
	if names := reg.Names(stage.Background); len(names) != 2 {
		t.Fatalf("background implementations = %v", names)
	}
}

func TestSwapCarriesBlurbAcrossImplementations(t *testing.T) {
	provider := testProvider(t)
	reg := strategy.NewRegistry()
	if err := RegisterDefaults(reg, provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ActivateDefaults(reg); err != nil {
		t.Fatalf("activate: %v", err)
	}

	active, _ := reg.Active(stage.Species)
	if _, err := active.Set("blurb", "The fens await."); err != nil {
		t.Fatalf("set blurb: %v", err)
	}
	next, err := reg.Swap(stage.Species, "destined")
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	destined, ok := next.(*SpeciesDestined)
	if !ok {
		t.Fatalf("swap installed %T", next)
	}
	if destined.blurb != "The fens await." {
		t.Fatalf("blurb not carried: %q", destined.blurb)
	}
	if destined.rerolls != 2 {
		t.Fatalf("rerolls should reset to the default, got %d", destined.rerolls)
	}
}

func TestSwapSimpleToCostedKeepsBlurbAndDefaultFee(t *testing.T) {
	provider := testProvider(t)
	reg := strategy.NewRegistry()
	if err := RegisterDefaults(reg, provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Activate(stage.Background, "simple", strategy.NewBlob()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, _ := reg.Active(stage.Background)
	if _, err := active.Set("blurb", "Ink costs extra."); err != nil {
		t.Fatalf("set blurb: %v", err)
	}

	next, err := reg.Swap(stage.Background, "costed")
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	costed, ok := next.(*BackgroundCosted)
	if !ok {
		t.Fatalf("swap installed %T", next)
	}
	if costed.blurb != "Ink costs extra." {
		t.Fatalf("blurb not carried: %q", costed.blurb)
	}
	if costed.FeeExpr() != DefaultBackgroundFee {
		t.Fatalf("fee should reset to the default, got %q", costed.FeeExpr())
	}
}
