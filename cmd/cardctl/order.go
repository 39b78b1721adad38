package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/catalog"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/customizer"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/suggestions"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/wizard"
)

type orderOptions struct {
	templateID string
	customer   string
	recipient  string
	message    string
	quantity   int

	image      string
	text       string
	preset     string
	font       string
	fontSize   int
	color      string
	textX      float64
	textY      float64
	brightness float64
	contrast   float64
	saturation float64
	blur       float64
	suggestion int
	occasion   string
	audience   string
	previewOut string
}

func (o orderOptions) wantsCustomization(cmd *cobra.Command) bool {
	for _, name := range []string{"image", "text", "preset", "font", "font-size", "color", "text-x", "text-y",
		"brightness", "contrast", "saturation", "blur", "suggestion"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func orderCmd(opts *globalOptions) *cobra.Command {
	var o orderOptions
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Order cards and print the checkout link",
		Example: `  cardctl order --template snowy-pine --name Ana --recipient Ben --message "Happy holidays" --qty 3
  cardctl order --template classic-wreath --name Ana --recipient Ben --image photo.jpg --preset warm --text "Joy!"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrder(cmd, opts, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.templateID, "template", "", "template id")
	f.StringVar(&o.customer, "name", "", "your name")
	f.StringVar(&o.recipient, "recipient", "", "recipient name")
	f.StringVar(&o.message, "message", "", "card message")
	f.IntVar(&o.quantity, "qty", 1, "number of cards")

	f.StringVar(&o.image, "image", "", "photo to print on the card")
	f.StringVar(&o.text, "text", "", "overlay text")
	f.StringVar(&o.preset, "preset", "", "filter preset (original, vintage, bw, cool, warm, dramatic, soft, vivid)")
	f.StringVar(&o.font, "font", customizer.DefaultFont, "overlay font family")
	f.IntVar(&o.fontSize, "font-size", customizer.DefaultFontSize, "overlay font size in pixels")
	f.StringVar(&o.color, "color", customizer.DefaultColor, "overlay colour from the palette")
	f.Float64Var(&o.textX, "text-x", customizer.DefaultPosition.X, "overlay centre, percent from the left")
	f.Float64Var(&o.textY, "text-y", customizer.DefaultPosition.Y, "overlay centre, percent from the top")
	f.Float64Var(&o.brightness, "brightness", 100, "brightness percent")
	f.Float64Var(&o.contrast, "contrast", 100, "contrast percent")
	f.Float64Var(&o.saturation, "saturation", 100, "saturation percent")
	f.Float64Var(&o.blur, "blur", 0, "blur radius in pixels")
	f.IntVar(&o.suggestion, "suggestion", 0, "apply design suggestion N (see cardctl suggest)")
	f.StringVar(&o.occasion, "occasion", "holiday", "occasion for --suggestion")
	f.StringVar(&o.audience, "for", "family", "recipient type for --suggestion")
	f.StringVar(&o.previewOut, "preview-out", "", "write the flattened preview PNG to this path")

	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func runOrder(cmd *cobra.Command, opts *globalOptions, o orderOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	client, err := opts.client()
	if err != nil {
		return err
	}
	cat := catalog.New(client)
	if _, err := cat.Load(ctx); err != nil {
		return err
	}
	card, err := cat.Find(o.templateID)
	if err != nil {
		return fmt.Errorf("template %q: %w", o.templateID, err)
	}

	w := wizard.New(client)
	w.SelectTemplate(wizard.TemplateFromCard(card))
	if err := w.Next(); err != nil {
		return err
	}
	w.SetCustomerName(o.customer)
	w.SetRecipientName(o.recipient)
	if err := w.Next(); err != nil {
		return err
	}

	if o.wantsCustomization(cmd) {
		res, err := customize(cmd, o)
		if err != nil {
			return err
		}
		w.ApplyCustomization(res)
		if o.previewOut != "" {
			if err := writePreview(o.previewOut, res.Preview); err != nil {
				return err
			}
			opts.logger.Info("preview written", zap.String("path", o.previewOut))
		}
	}
	if o.message != "" {
		w.SetMessage(o.message)
	}
	if err := w.Next(); err != nil {
		return err
	}
	w.SetQuantity(o.quantity)

	draft := w.Draft()
	fmt.Fprintf(out, "%d x %s for %s from %s: %s\n", draft.Quantity, card.Title, draft.RecipientName, draft.CustomerName, w.FormatTotal())

	url, err := w.Submit(ctx)
	if err != nil {
		var submitErr *wizard.SubmitError
		if errors.As(err, &submitErr) {
			return fmt.Errorf("checkout failed: %s", submitErr.Message())
		}
		return err
	}
	opts.logger.Info("checkout session created", zap.String("template_id", card.ID))
	fmt.Fprintln(out, url)
	return nil
}

func customize(cmd *cobra.Command, o orderOptions) (customizer.Result, error) {
	s := customizer.NewSession()
	if o.image != "" {
		data, err := os.ReadFile(o.image)
		if err != nil {
			return customizer.Result{}, fmt.Errorf("read image: %w", err)
		}
		ok, err := s.Load(http.DetectContentType(data), data)
		if err != nil {
			return customizer.Result{}, err
		}
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s is not an image, ignoring it\n", o.image)
		}
	}

	if cmd.Flags().Changed("suggestion") {
		occasion, err := suggestions.ParseOccasion(o.occasion)
		if err != nil {
			return customizer.Result{}, err
		}
		audience, err := suggestions.ParseRecipient(o.audience)
		if err != nil {
			return customizer.Result{}, err
		}
		list, _ := suggestions.Lookup(occasion, audience)
		if o.suggestion < 1 || o.suggestion > len(list) {
			return customizer.Result{}, fmt.Errorf("suggestion must be between 1 and %d", len(list))
		}
		s.ApplySuggestion(list[o.suggestion-1])
	}

	if o.preset != "" {
		if err := s.ApplyPreset(o.preset); err != nil {
			return customizer.Result{}, err
		}
	}
	changed := cmd.Flags().Changed
	if changed("brightness") {
		s.SetBrightness(o.brightness)
	}
	if changed("contrast") {
		s.SetContrast(o.contrast)
	}
	if changed("saturation") {
		s.SetSaturation(o.saturation)
	}
	if changed("blur") {
		s.SetBlur(o.blur)
	}
	if changed("text") {
		s.SetText(o.text)
	}
	if changed("font") {
		if err := s.SetFontFamily(o.font); err != nil {
			return customizer.Result{}, fmt.Errorf("%w (choose from %s)", err, strings.Join(customizer.Fonts, ", "))
		}
	}
	if changed("font-size") {
		s.SetFontSize(o.fontSize)
	}
	if changed("color") {
		if err := s.SetTextColor(o.color); err != nil {
			return customizer.Result{}, fmt.Errorf("%w (choose from %s)", err, strings.Join(customizer.Colors, ", "))
		}
	}
	if changed("text-x") || changed("text-y") {
		pos := s.Position()
		if changed("text-x") {
			pos.X = o.textX
		}
		if changed("text-y") {
			pos.Y = o.textY
		}
		s.SetPosition(pos)
	}
	return s.Save()
}

func writePreview(path, dataURL string) error {
	_, data, err := customizer.DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}
