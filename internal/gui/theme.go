package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Theme is a light blue-grey palette with a slate accent.
type Theme struct{}

func NewTheme() fyne.Theme {
	return &Theme{}
}

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		if variant == theme.VariantDark {
			return color.RGBA{R: 28, G: 33, B: 40, A: 255}
		}
		return color.RGBA{R: 232, G: 238, B: 245, A: 255}

	case theme.ColorNameInputBackground:
		if variant == theme.VariantDark {
			return color.RGBA{R: 40, G: 46, B: 56, A: 255}
		}
		return color.White

	case theme.ColorNameForeground:
		if variant == theme.VariantDark {
			return color.RGBA{R: 240, G: 240, B: 240, A: 255}
		}
		return color.RGBA{R: 26, G: 26, B: 26, A: 255}

	case theme.ColorNamePrimary:
		if variant == theme.VariantDark {
			return color.RGBA{R: 120, G: 160, B: 210, A: 255}
		}
		return color.RGBA{R: 61, G: 90, B: 120, A: 255}

	case theme.ColorNameFocus:
		return color.RGBA{R: 91, G: 122, B: 157, A: 255}

	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
