package rasdesign

// StageID names one unit of the design wizard.
type StageID string

const (
	// StageBasics collects the design name, species, and project metadata. The
	// backend design resource is created when this stage is committed.
	StageBasics StageID = "basics"
	// StageProduction collects tank, feed, and water-quality inputs and drives
	// the core mass-balance previews.
	StageProduction StageID = "production"
	// StageBiofilter is the optional biofilter sizing stage. It depends on
	// production inputs via snapshots.
	StageBiofilter StageID = "biofilter"
	// StagePumping is the optional pump and pipe sizing stage. It depends on
	// production inputs via snapshots.
	StagePumping StageID = "pumping"
	// StageReport is the terminal stage; the committed design is rendered by
	// the presentation layer.
	StageReport StageID = "report"
)

// Recommended payload precedence for the canonical stage sequence. Higher
// numbers win when the same field name appears in more than one source.
const (
	StagePriorityBasics     = 100
	StagePriorityProduction = 200
	StagePriorityBiofilter  = 300
	StagePriorityPumping    = 400
)

// FieldSpec declares one field owned by a stage.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Group    string
	Required bool
}

// ValidationRule is an expression evaluated against the stage's form at a
// commit boundary. A rule passes when the expression yields a truthy result.
type ValidationRule struct {
	Expr    string
	Message string
}

// StageDescriptor is static, per-stage metadata fixed at session start.
type StageDescriptor struct {
	ID       StageID
	Label    string
	Ordinal  int
	Optional bool

	// Priority orders this stage's form against upstream snapshots when
	// assembling preview payloads. Stage-owned values win over upstream ones.
	Priority int

	// Fields the stage owns. Required fields must be non-empty before the
	// stage can be committed.
	Fields []FieldSpec

	// DependsOn lists upstream stages whose inputs feed this stage's preview
	// payloads through frozen snapshots.
	DependsOn []StageID

	// Sections names the readiness sections this stage's previews populate.
	// Stages with no sections never dispatch previews.
	Sections []string

	// PreviewRequires lists fields that must be non-empty (in the stage's own
	// form or an upstream snapshot) before previews are dispatched. A missing
	// gate field silently skips the preview; it is not an error.
	PreviewRequires []string

	// Rules are cross-field constraints checked alongside required fields.
	Rules []ValidationRule
}

// RequiredFields returns the names of fields marked required.
func (d StageDescriptor) RequiredFields() []string {
	var out []string
	for _, field := range d.Fields {
		if field.Required {
			out = append(out, field.Name)
		}
	}
	return out
}

// FieldSpecFor returns the declaration for name when the stage owns it.
func (d StageDescriptor) FieldSpecFor(name string) (FieldSpec, bool) {
	for _, field := range d.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// DefaultStages assembles the canonical five-stage recirculating-aquaculture
// design sequence: basics, production, optional biofilter sizing, optional
// pump sizing, and the report.
func DefaultStages() []StageDescriptor {
	return []StageDescriptor{
		{
			ID:      StageBasics,
			Label:   "Design Basics",
			Ordinal: 0,
			Fields: []FieldSpec{
				{Name: "designName", Kind: KindText, Group: "identity", Required: true},
				{Name: "species", Kind: KindText, Group: "identity", Required: true},
				{Name: "siteNotes", Kind: KindText, Group: "identity"},
			},
			Priority: StagePriorityBasics,
		},
		{
			ID:      StageProduction,
			Label:   "Production Inputs",
			Ordinal: 1,
			Fields: []FieldSpec{
				{Name: "tankVolume", Kind: KindNumber, Group: "tanks", Required: true},
				{Name: "numTanks", Kind: KindNumber, Group: "tanks", Required: true},
				{Name: "targetDensity", Kind: KindNumber, Group: "tanks"},
				{Name: "feedRate", Kind: KindNumber, Group: "feed", Required: true},
				{Name: "feedConversionRatio", Kind: KindNumber, Group: "feed"},
				{Name: "waterTemp", Kind: KindNumber, Group: "water"},
				{Name: "influentDO", Kind: KindNumber, Group: "oxygen"},
				{Name: "supplementPureO2", Kind: KindBool, Group: "oxygen"},
			},
			DependsOn:       []StageID{StageBasics},
			Sections:        []string{"oxygen", "co2", "tss", "tan", "flow"},
			PreviewRequires: []string{"species"},
			Priority:        StagePriorityProduction,
			Rules: []ValidationRule{
				{Expr: "tankVolume > 0", Message: "tank volume must be positive"},
				{Expr: "numTanks >= 1", Message: "at least one tank is required"},
			},
		},
		{
			ID:       StageBiofilter,
			Label:    "Biofilter Sizing",
			Ordinal:  2,
			Optional: true,
			Fields: []FieldSpec{
				{Name: "mediaSSA", Kind: KindNumber, Group: "media", Required: true},
				{Name: "targetTAN", Kind: KindNumber, Group: "media"},
				// Overrides the production-stage value of the same name when
				// both are set; the stage-specific entry wins.
				{Name: "feedConversionRatio", Kind: KindNumber, Group: "feed"},
				{Name: "passiveNitrification", Kind: KindBool, Group: "media"},
			},
			DependsOn:       []StageID{StageBasics, StageProduction},
			Sections:        []string{"biofilter", "stage1-flow"},
			PreviewRequires: []string{"species", "feedRate"},
			Priority:        StagePriorityBiofilter,
			Rules: []ValidationRule{
				{Expr: "mediaSSA > 0", Message: "media specific surface area must be positive"},
			},
		},
		{
			ID:       StagePumping,
			Label:    "Pump Sizing",
			Ordinal:  3,
			Optional: true,
			Fields: []FieldSpec{
				{Name: "pipeLength", Kind: KindNumber, Group: "piping", Required: true},
				{Name: "staticHead", Kind: KindNumber, Group: "piping"},
				{Name: "targetVelocity", Kind: KindNumber, Group: "piping"},
			},
			DependsOn:       []StageID{StageBasics, StageProduction},
			Sections:        []string{"pumping"},
			PreviewRequires: []string{"species", "tankVolume"},
			Priority:        StagePriorityPumping,
		},
		{
			ID:      StageReport,
			Label:   "Report",
			Ordinal: 4,
		},
	}
}
