package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/tubereng/tuber/ecs"
)

// ComponentInspector shows and edits the components of the selected entity.
// Edits mark the component dirty so change-driven systems pick them up.
type ComponentInspector struct {
	selected    ecs.EntityId
	hasSelected bool
	fields      map[reflect.Type][]editableField
}

// editableField is an exported struct field the inspector draws.
type editableField struct {
	name    string
	index   int
	pointer bool
}

func NewComponentInspector() *ComponentInspector {
	return &ComponentInspector{fields: make(map[reflect.Type][]editableField)}
}

func (ci *ComponentInspector) Select(e ecs.EntityId) {
	ci.selected = e
	ci.hasSelected = true
}

func (ci *ComponentInspector) Selected() ecs.EntityId { return ci.selected }
func (ci *ComponentInspector) HasSelection() bool     { return ci.hasSelected }

func (ci *ComponentInspector) Render(w *ecs.Ecs) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if !ci.hasSelected {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}

	views := w.Entities().Inspect(ci.selected)
	imgui.Text(fmt.Sprintf("Entity ID: %d", ci.selected))
	imgui.Text(fmt.Sprintf("Components: %d", len(views)))
	imgui.Separator()

	for _, view := range views {
		if imgui.TreeNodeStr(view.Type.String()) {
			if ci.renderValue(view.Value.Elem()) {
				w.Entities().MarkDirty(ci.selected, view.Type)
			}
			imgui.TreePop()
		}
	}

	imgui.End()
}

// fieldsOf lists the exported fields of t. Component layouts never change,
// so the result is kept for the next frame.
func (ci *ComponentInspector) fieldsOf(t reflect.Type) []editableField {
	if fields, ok := ci.fields[t]; ok {
		return fields
	}
	var fields []editableField
	if t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() {
				fields = append(fields, editableField{name: f.Name, index: i, pointer: f.Type.Kind() == reflect.Pointer})
			}
		}
	}
	ci.fields[t] = fields
	return fields
}

// renderValue draws the exported fields of a struct value and reports
// whether any of them was edited.
func (ci *ComponentInspector) renderValue(val reflect.Value) bool {
	if val.Kind() != reflect.Struct {
		return ci.renderField("value", val)
	}
	changed := false
	for _, field := range ci.fieldsOf(val.Type()) {
		v := val.Field(field.index)
		if field.pointer {
			if v.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.name))
				continue
			}
			v = v.Elem()
		}
		if ci.renderField(field.name, v) {
			changed = true
		}
	}
	return changed
}

func (ci *ComponentInspector) renderField(name string, val reflect.Value) bool {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return false
	}
	label := fmt.Sprintf("##%s", name)

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(label, &v) && val.CanSet() {
			val.SetInt(int64(v))
			return true
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(label, &v) && v >= 0 && val.CanSet() {
			val.SetUint(uint64(v))
			return true
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(label, &v) && val.CanSet() {
			val.SetFloat(float64(v))
			return true
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) && val.CanSet() {
			val.SetBool(v)
			return true
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(label, "", &v, imgui.InputTextFlagsNone, nil) && val.CanSet() {
			val.SetString(v)
			return true
		}

	case reflect.Struct:
		changed := false
		if imgui.TreeNodeStr(name) {
			changed = ci.renderValue(val)
			imgui.TreePop()
		}
		return changed

	case reflect.Array:
		changed := false
		if imgui.TreeNodeStr(fmt.Sprintf("%s [%d]", name, val.Len())) {
			for i := range val.Len() {
				if ci.renderField(fmt.Sprintf("%s[%d]", name, i), val.Index(i)) {
					changed = true
				}
			}
			imgui.TreePop()
		}
		return changed

	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	case reflect.Func:
		imgui.Text(fmt.Sprintf("%s: func", name))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
	}
	return false
}
