package pdfextract

import "strconv"

// OpCode identifies a drawing operation. The numbering matches the operator
// codes of Mozilla's pdf.js, so operator lists obtained from pdf.js need no
// translation.
type OpCode int

// Operation codes.
const (
	OpDependency OpCode = iota + 1
	OpSetLineWidth
	OpSetLineCap
	OpSetLineJoin
	OpSetMiterLimit
	OpSetDash
	OpSetRenderingIntent
	OpSetFlatness
	OpSetGState
	OpSave
	OpRestore
	OpTransform
	OpMoveTo
	OpLineTo
	OpCurveTo
	OpCurveTo2
	OpCurveTo3
	OpClosePath
	OpRectangle
	OpStroke
	OpCloseStroke
	OpFill
	OpEOFill
	OpFillStroke
	OpEOFillStroke
	OpCloseFillStroke
	OpCloseEOFillStroke
	OpEndPath
	OpClip
	OpEOClip
	OpBeginText
	OpEndText
	OpSetCharSpacing
	OpSetWordSpacing
	OpSetHScale
	OpSetLeading
	OpSetFont
	OpSetTextRenderingMode
	OpSetTextRise
	OpMoveText
	OpSetLeadingMoveText
	OpSetTextMatrix
	OpNextLine
	OpShowText
	OpShowSpacedText
	OpNextLineShowText
	OpNextLineSetSpacingShowText
	OpSetCharWidth
	OpSetCharWidthAndBounds
	OpSetStrokeColorSpace
	OpSetFillColorSpace
	OpSetStrokeColor
	OpSetStrokeColorN
	OpSetFillColor
	OpSetFillColorN
	OpSetStrokeGray
	OpSetFillGray
	OpSetStrokeRGBColor
	OpSetFillRGBColor
	OpSetStrokeCMYKColor
	OpSetFillCMYKColor
	OpShadingFill
	OpBeginInlineImage
	OpBeginImageData
	OpEndInlineImage
	OpPaintXObject
	OpMarkPoint
	OpMarkPointProps
	OpBeginMarkedContent
	OpBeginMarkedContentProps
	OpEndMarkedContent
	OpBeginCompat
	OpEndCompat
	OpPaintFormXObjectBegin
	OpPaintFormXObjectEnd
	OpBeginGroup
	OpEndGroup
	OpBeginAnnotations
	OpEndAnnotations
	OpBeginAnnotation
	OpEndAnnotation
	OpPaintJpegXObject
	OpPaintImageMaskXObject
	OpPaintImageMaskXObjectGroup
	OpPaintImageXObject
	OpPaintInlineImageXObject
	OpPaintInlineImageXObjectGroup
	OpPaintImageXObjectRepeat
	OpPaintImageMaskXObjectRepeat
	OpPaintSolidColorImageMask
	OpConstructPath
)

var opNames = [...]string{
	OpDependency:                   "dependency",
	OpSetLineWidth:                 "setLineWidth",
	OpSetLineCap:                   "setLineCap",
	OpSetLineJoin:                  "setLineJoin",
	OpSetMiterLimit:                "setMiterLimit",
	OpSetDash:                      "setDash",
	OpSetRenderingIntent:           "setRenderingIntent",
	OpSetFlatness:                  "setFlatness",
	OpSetGState:                    "setGState",
	OpSave:                         "save",
	OpRestore:                      "restore",
	OpTransform:                    "transform",
	OpMoveTo:                       "moveTo",
	OpLineTo:                       "lineTo",
	OpCurveTo:                      "curveTo",
	OpCurveTo2:                     "curveTo2",
	OpCurveTo3:                     "curveTo3",
	OpClosePath:                    "closePath",
	OpRectangle:                    "rectangle",
	OpStroke:                       "stroke",
	OpCloseStroke:                  "closeStroke",
	OpFill:                         "fill",
	OpEOFill:                       "eoFill",
	OpFillStroke:                   "fillStroke",
	OpEOFillStroke:                 "eoFillStroke",
	OpCloseFillStroke:              "closeFillStroke",
	OpCloseEOFillStroke:            "closeEOFillStroke",
	OpEndPath:                      "endPath",
	OpClip:                         "clip",
	OpEOClip:                       "eoClip",
	OpBeginText:                    "beginText",
	OpEndText:                      "endText",
	OpSetCharSpacing:               "setCharSpacing",
	OpSetWordSpacing:               "setWordSpacing",
	OpSetHScale:                    "setHScale",
	OpSetLeading:                   "setLeading",
	OpSetFont:                      "setFont",
	OpSetTextRenderingMode:         "setTextRenderingMode",
	OpSetTextRise:                  "setTextRise",
	OpMoveText:                     "moveText",
	OpSetLeadingMoveText:           "setLeadingMoveText",
	OpSetTextMatrix:                "setTextMatrix",
	OpNextLine:                     "nextLine",
	OpShowText:                     "showText",
	OpShowSpacedText:               "showSpacedText",
	OpNextLineShowText:             "nextLineShowText",
	OpNextLineSetSpacingShowText:   "nextLineSetSpacingShowText",
	OpSetCharWidth:                 "setCharWidth",
	OpSetCharWidthAndBounds:        "setCharWidthAndBounds",
	OpSetStrokeColorSpace:          "setStrokeColorSpace",
	OpSetFillColorSpace:            "setFillColorSpace",
	OpSetStrokeColor:               "setStrokeColor",
	OpSetStrokeColorN:              "setStrokeColorN",
	OpSetFillColor:                 "setFillColor",
	OpSetFillColorN:                "setFillColorN",
	OpSetStrokeGray:                "setStrokeGray",
	OpSetFillGray:                  "setFillGray",
	OpSetStrokeRGBColor:            "setStrokeRGBColor",
	OpSetFillRGBColor:              "setFillRGBColor",
	OpSetStrokeCMYKColor:           "setStrokeCMYKColor",
	OpSetFillCMYKColor:             "setFillCMYKColor",
	OpShadingFill:                  "shadingFill",
	OpBeginInlineImage:             "beginInlineImage",
	OpBeginImageData:               "beginImageData",
	OpEndInlineImage:               "endInlineImage",
	OpPaintXObject:                 "paintXObject",
	OpMarkPoint:                    "markPoint",
	OpMarkPointProps:               "markPointProps",
	OpBeginMarkedContent:           "beginMarkedContent",
	OpBeginMarkedContentProps:      "beginMarkedContentProps",
	OpEndMarkedContent:             "endMarkedContent",
	OpBeginCompat:                  "beginCompat",
	OpEndCompat:                    "endCompat",
	OpPaintFormXObjectBegin:        "paintFormXObjectBegin",
	OpPaintFormXObjectEnd:          "paintFormXObjectEnd",
	OpBeginGroup:                   "beginGroup",
	OpEndGroup:                     "endGroup",
	OpBeginAnnotations:             "beginAnnotations",
	OpEndAnnotations:               "endAnnotations",
	OpBeginAnnotation:              "beginAnnotation",
	OpEndAnnotation:                "endAnnotation",
	OpPaintJpegXObject:             "paintJpegXObject",
	OpPaintImageMaskXObject:        "paintImageMaskXObject",
	OpPaintImageMaskXObjectGroup:   "paintImageMaskXObjectGroup",
	OpPaintImageXObject:            "paintImageXObject",
	OpPaintInlineImageXObject:      "paintInlineImageXObject",
	OpPaintInlineImageXObjectGroup: "paintInlineImageXObjectGroup",
	OpPaintImageXObjectRepeat:      "paintImageXObjectRepeat",
	OpPaintImageMaskXObjectRepeat:  "paintImageMaskXObjectRepeat",
	OpPaintSolidColorImageMask:     "paintSolidColorImageMask",
	OpConstructPath:                "constructPath",
}

func (c OpCode) String() string {
	if c > 0 && int(c) < len(opNames) {
		return opNames[c]
	}
	return "OpCode(" + strconv.Itoa(int(c)) + ")"
}

// contentOperators maps PDF content-stream operators to operation codes.
// "Do" maps to OpPaintXObject; backends refine it once the XObject subtype
// is known.
var contentOperators = map[string]OpCode{
	"w":   OpSetLineWidth,
	"J":   OpSetLineCap,
	"j":   OpSetLineJoin,
	"M":   OpSetMiterLimit,
	"d":   OpSetDash,
	"ri":  OpSetRenderingIntent,
	"i":   OpSetFlatness,
	"gs":  OpSetGState,
	"q":   OpSave,
	"Q":   OpRestore,
	"cm":  OpTransform,
	"m":   OpMoveTo,
	"l":   OpLineTo,
	"c":   OpCurveTo,
	"v":   OpCurveTo2,
	"y":   OpCurveTo3,
	"h":   OpClosePath,
	"re":  OpRectangle,
	"S":   OpStroke,
	"s":   OpCloseStroke,
	"f":   OpFill,
	"F":   OpFill,
	"f*":  OpEOFill,
	"B":   OpFillStroke,
	"B*":  OpEOFillStroke,
	"b":   OpCloseFillStroke,
	"b*":  OpCloseEOFillStroke,
	"n":   OpEndPath,
	"W":   OpClip,
	"W*":  OpEOClip,
	"BT":  OpBeginText,
	"ET":  OpEndText,
	"Tc":  OpSetCharSpacing,
	"Tw":  OpSetWordSpacing,
	"Tz":  OpSetHScale,
	"TL":  OpSetLeading,
	"Tf":  OpSetFont,
	"Tr":  OpSetTextRenderingMode,
	"Ts":  OpSetTextRise,
	"Td":  OpMoveText,
	"TD":  OpSetLeadingMoveText,
	"Tm":  OpSetTextMatrix,
	"T*":  OpNextLine,
	"Tj":  OpShowText,
	"TJ":  OpShowSpacedText,
	"'":   OpNextLineShowText,
	`"`:   OpNextLineSetSpacingShowText,
	"d0":  OpSetCharWidth,
	"d1":  OpSetCharWidthAndBounds,
	"CS":  OpSetStrokeColorSpace,
	"cs":  OpSetFillColorSpace,
	"SC":  OpSetStrokeColor,
	"SCN": OpSetStrokeColorN,
	"sc":  OpSetFillColor,
	"scn": OpSetFillColorN,
	"G":   OpSetStrokeGray,
	"g":   OpSetFillGray,
	"RG":  OpSetStrokeRGBColor,
	"rg":  OpSetFillRGBColor,
	"K":   OpSetStrokeCMYKColor,
	"k":   OpSetFillCMYKColor,
	"sh":  OpShadingFill,
	"BI":  OpBeginInlineImage,
	"ID":  OpBeginImageData,
	"EI":  OpEndInlineImage,
	"Do":  OpPaintXObject,
	"MP":  OpMarkPoint,
	"DP":  OpMarkPointProps,
	"BMC": OpBeginMarkedContent,
	"BDC": OpBeginMarkedContentProps,
	"EMC": OpEndMarkedContent,
	"BX":  OpBeginCompat,
	"EX":  OpEndCompat,
}

// LookupOperator returns the operation code for a content-stream operator.
func LookupOperator(op string) (OpCode, bool) {
	c, ok := contentOperators[op]
	return c, ok
}

// OpSet is a set of operation codes.
type OpSet []OpCode

// Contains reports whether c is in the set.
func (s OpSet) Contains(c OpCode) bool {
	for _, x := range s {
		if x == c {
			return true
		}
	}
	return false
}

// ImageOps returns the operations that paint a named image object: plain,
// repeated, and JPEG-encoded image XObjects. All three are extracted the
// same way.
func ImageOps() OpSet {
	return OpSet{OpPaintImageXObject, OpPaintImageXObjectRepeat, OpPaintJpegXObject}
}
