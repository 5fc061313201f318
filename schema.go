package rasdesign

// SchemaFormat identifies a schema rendering strategy.
type SchemaFormat string

// SchemaFormatFieldGroups renders stages as ordered field groups, the shape
// wizard front ends consume directly.
const SchemaFormatFieldGroups SchemaFormat = "field-groups"

// SchemaDocument is a serialisable description of the configured pipeline:
// which stages exist, their order, and the typed fields each one collects.
type SchemaDocument struct {
	Format SchemaFormat  `json:"format"`
	Stages []SchemaStage `json:"stages"`
}

// SchemaStage describes one stage's form.
type SchemaStage struct {
	ID       StageID       `json:"id"`
	Label    string        `json:"label"`
	Ordinal  int           `json:"ordinal"`
	Optional bool          `json:"optional,omitempty"`
	Groups   []SchemaGroup `json:"groups,omitempty"`
}

// SchemaGroup is a named cluster of related fields within a stage.
type SchemaGroup struct {
	Name   string        `json:"name"`
	Fields []SchemaField `json:"fields"`
}

// SchemaField describes one typed input.
type SchemaField struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Required bool   `json:"required,omitempty"`
}

// SchemaGenerator renders stage descriptors into a schema document.
type SchemaGenerator interface {
	Generate(stages []StageDescriptor) (SchemaDocument, error)
}

// SchemaGeneratorFunc adapts a function to the SchemaGenerator interface.
type SchemaGeneratorFunc func(stages []StageDescriptor) (SchemaDocument, error)

// Generate implements SchemaGenerator.
func (fn SchemaGeneratorFunc) Generate(stages []StageDescriptor) (SchemaDocument, error) {
	return fn(stages)
}

// DefaultSchemaGenerator groups each stage's fields by their declared group,
// preserving field declaration order. Ungrouped fields land in "general".
func DefaultSchemaGenerator() SchemaGenerator {
	return SchemaGeneratorFunc(func(stages []StageDescriptor) (SchemaDocument, error) {
		doc := SchemaDocument{Format: SchemaFormatFieldGroups}
		for _, desc := range stages {
			stage := SchemaStage{
				ID:       desc.ID,
				Label:    desc.Label,
				Ordinal:  desc.Ordinal,
				Optional: desc.Optional,
			}
			index := map[string]int{}
			for _, field := range desc.Fields {
				group := field.Group
				if group == "" {
					group = "general"
				}
				i, ok := index[group]
				if !ok {
					i = len(stage.Groups)
					index[group] = i
					stage.Groups = append(stage.Groups, SchemaGroup{Name: group})
				}
				stage.Groups[i].Fields = append(stage.Groups[i].Fields, SchemaField{
					Name:     field.Name,
					Kind:     field.Kind,
					Required: field.Required,
				})
			}
			doc.Stages = append(doc.Stages, stage)
		}
		return doc, nil
	})
}

// Schema renders the session's configured stages with the session's schema
// generator.
func (s *Session) Schema() (SchemaDocument, error) {
	generator := s.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(s.Stages())
}
