package dxf

// beginTable writes a TABLE header and returns its handle.
func beginTable(w *writer, name string, count int) string {
	h := w.next()
	w.pair(0, "TABLE")
	w.pair(2, name)
	w.pair(5, h)
	w.pair(330, "0")
	w.pair(100, "AcDbSymbolTable")
	w.integer(70, count)
	return h
}

func endTable(w *writer) { w.pair(0, "ENDTAB") }

// record writes the common prefix of a symbol table record.
func record(w *writer, kind, owner, subclass string) string {
	h := w.next()
	w.pair(0, kind)
	w.pair(5, h)
	w.pair(330, owner)
	w.pair(100, "AcDbSymbolTableRecord")
	w.pair(100, subclass)
	return h
}

func (d *Drawing) writeTables(w *writer, h *handles) {
	w.pair(0, "SECTION")
	w.pair(2, "TABLES")

	ext := d.Extents()
	t := beginTable(w, "VPORT", 1)
	record(w, "VPORT", t, "AcDbViewportTableRecord")
	w.pair(2, "*ACTIVE")
	w.integer(70, 0)
	w.float(10, 0)
	w.float(20, 0)
	w.float(11, 1)
	w.float(21, 1)
	w.float(12, (ext.Min.X+ext.Max.X)/2)
	w.float(22, (ext.Min.Y+ext.Max.Y)/2)
	w.float(13, 0)
	w.float(23, 0)
	w.float(14, 10)
	w.float(24, 10)
	w.float(15, 10)
	w.float(25, 10)
	w.float(16, 0)
	w.float(26, 0)
	w.float(36, 1)
	w.float(17, 0)
	w.float(27, 0)
	w.float(37, 0)
	height := ext.Max.Y - ext.Min.Y
	if height <= 0 {
		height = 1
	}
	w.float(40, height*1.1)
	w.float(41, 1.5)
	w.float(42, 50)
	w.float(43, 0)
	w.float(44, 0)
	w.float(50, 0)
	w.float(51, 0)
	w.integer(71, 0)
	w.integer(72, 1000)
	w.integer(73, 1)
	w.integer(74, 3)
	w.integer(75, 0)
	w.integer(76, 0)
	w.integer(77, 0)
	w.integer(78, 0)
	endTable(w)

	t = beginTable(w, "LTYPE", 3)
	for _, name := range []string{"ByBlock", "ByLayer", "Continuous"} {
		record(w, "LTYPE", t, "AcDbLinetypeTableRecord")
		w.pair(2, name)
		w.integer(70, 0)
		desc := ""
		if name == "Continuous" {
			desc = "Solid line"
		}
		w.pair(3, desc)
		w.integer(72, 65)
		w.integer(73, 0)
		w.float(40, 0)
	}
	endTable(w)

	layers := append([]Layer{{Name: "0", Color: 7}}, d.Layers...)
	t = beginTable(w, "LAYER", len(layers))
	for _, l := range layers {
		record(w, "LAYER", t, "AcDbLayerTableRecord")
		w.str(2, l.Name)
		w.integer(70, 0)
		w.integer(62, l.Color)
		w.pair(6, "Continuous")
		w.integer(370, -3)
	}
	endTable(w)

	t = beginTable(w, "STYLE", 1)
	record(w, "STYLE", t, "AcDbTextStyleTableRecord")
	w.pair(2, "Standard")
	w.integer(70, 0)
	w.float(40, 0)
	w.float(41, 1)
	w.float(50, 0)
	w.integer(71, 0)
	w.float(42, 2.5)
	w.pair(3, "txt")
	w.pair(4, "")
	endTable(w)

	for _, name := range []string{"VIEW", "UCS"} {
		beginTable(w, name, 0)
		endTable(w)
	}

	t = beginTable(w, "APPID", 1)
	record(w, "APPID", t, "AcDbRegAppTableRecord")
	w.pair(2, "ACAD")
	w.integer(70, 0)
	endTable(w)

	// DIMSTYLE records carry their handle in group 105.
	t = beginTable(w, "DIMSTYLE", 1)
	w.pair(100, "AcDbDimStyleTable")
	w.integer(71, 0)
	w.pair(0, "DIMSTYLE")
	w.pair(105, w.next())
	w.pair(330, t)
	w.pair(100, "AcDbSymbolTableRecord")
	w.pair(100, "AcDbDimStyleTableRecord")
	w.pair(2, "Standard")
	w.integer(70, 0)
	endTable(w)

	t = beginTable(w, "BLOCK_RECORD", 2)
	h.modelRecord = record(w, "BLOCK_RECORD", t, "AcDbBlockTableRecord")
	w.pair(2, "*Model_Space")
	w.pair(340, h.modelLayout)
	h.paperRecord = record(w, "BLOCK_RECORD", t, "AcDbBlockTableRecord")
	w.pair(2, "*Paper_Space")
	w.pair(340, h.paperLayout)
	endTable(w)

	w.pair(0, "ENDSEC")
}
