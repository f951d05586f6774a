package helpers

import (
	"bytes"
	"encoding/base64"
	"html/template"
	"image"
	"image/png"

	"bitbucket.org/akrix/backend/models"
	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	ConstLayoutReceiptDate = "02-01-2006"
	qrImageName            = "receipt-qr"
)

// Issuer is printed in the receipt header.
type Issuer struct {
	Name    string
	Address string
	Email   string
}

// FPDFRenderer draws the receipt directly with gofpdf. It needs no external binary.
type FPDFRenderer struct {
	Issuer Issuer
}

func (r *FPDFRenderer) Render(view models.ReceiptView) ([]byte, error) {
	qr, err := qrcode.Encode(view.ReceiptNumber, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+view.ReceiptNumber, false)
	pdf.AddPage()

	qrOptions := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(qrImageName, qrOptions, bytes.NewReader(qr))
	pdf.ImageOptions(qrImageName, 160, 10, 35, 35, false, qrOptions, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, RemoveAccents(r.Issuer.Name))
	pdf.SetFont("Arial", "", 11)
	pdf.Ln(8)
	pdf.Cell(100, 7, RemoveAccents(r.Issuer.Address))
	pdf.Ln(6)
	pdf.Cell(100, 7, r.Issuer.Email)
	pdf.Ln(20)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(95, 8, "Receipt No: "+view.ReceiptNumber)
	pdf.Cell(95, 8, "Date: "+view.Date.Format(ConstLayoutReceiptDate))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "Received From:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 7, RemoveAccents(view.CustomerName))
	pdf.Ln(6)
	pdf.Cell(100, 7, view.CustomerEmail)
	pdf.Ln(6)
	pdf.Cell(100, 7, "Phone: "+view.CustomerPhone)
	pdf.Ln(6)
	pdf.MultiCell(0, 7, RemoveAccents(view.CustomerAddress), "", "L", false)
	pdf.Ln(6)

	rows := [][2]string{
		{"Amount", "INR " + view.Amount.StringFixed(2)},
		{"Payment Mode", string(view.Mode)},
		{"Status", string(view.Status)},
	}
	if view.GatewayPaymentID != "" {
		rows = append(rows, [2]string{"Transaction ID", view.GatewayPaymentID})
	}
	if view.GatewayOrderID != "" {
		rows = append(rows, [2]string{"Order ID", view.GatewayOrderID})
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(60, 8, "Detail", "1", 0, "C", false, 0, "")
	pdf.CellFormat(120, 8, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	for _, row := range rows {
		pdf.CellFormat(60, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(120, 8, row[1], "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(12)
	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(0, 6, "This is a computer generated receipt and does not require a signature.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "failed writing receipt pdf")
	}

	return buf.Bytes(), nil
}

// HTMLRenderer fills an html template and converts it with wkhtmltopdf.
type HTMLRenderer struct {
	Issuer       Issuer
	TemplatePath string
}

func (r *HTMLRenderer) Render(view models.ReceiptView) ([]byte, error) {
	img, err := qrcode.New(view.ReceiptNumber, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeImage(img.Image(256))
	if err != nil {
		return nil, err
	}

	body, err := ParseTemplate(r.TemplatePath, receiptPDFHTML(r.Issuer, view, encoded))
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, err
	}

	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader(body)))

	if err := pdfg.Create(); err != nil {
		return nil, err
	}

	return pdfg.Bytes(), nil
}

func receiptPDFHTML(issuer Issuer, view models.ReceiptView, qr string) models.ReceiptPDFHTML {
	return models.ReceiptPDFHTML{
		CompanyName:     issuer.Name,
		CompanyAddress:  issuer.Address,
		CompanyEmail:    issuer.Email,
		ReceiptNumber:   view.ReceiptNumber,
		Date:            view.Date.Format(ConstLayoutReceiptDate),
		CustomerName:    view.CustomerName,
		CustomerEmail:   view.CustomerEmail,
		CustomerPhone:   view.CustomerPhone,
		CustomerAddress: view.CustomerAddress,
		Amount:          view.Amount.StringFixed(2),
		Mode:            string(view.Mode),
		Status:          string(view.Status),
		GatewayPayment:  view.GatewayPaymentID,
		GatewayOrder:    view.GatewayOrderID,
		Image:           template.URL("data:image/png;base64," + qr),
	}
}

// ParseTemplate executes the html template file with data.
func ParseTemplate(templateFileName string, data interface{}) ([]byte, error) {
	t, err := template.ParseFiles(templateFileName)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err = t.Execute(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeImage(m image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
