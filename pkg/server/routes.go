package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/modelhub/modelhub/pkg/contract"
)

func pathID(ctx *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParameter(fmt.Sprintf("Invalid value %q for path parameter '%s'", ctx.Params(name), name))
	}

	return id, nil
}

// formFile reads a multipart part. Missing optional parts yield nil data.
func formFile(ctx *fiber.Ctx, name string, required bool) (string, []byte, error) {
	header, err := ctx.FormFile(name)
	if err != nil {
		if !required && errors.Is(err, fasthttp.ErrMissingFile) {
			return "", nil, nil
		}

		if errors.Is(err, fasthttp.ErrMissingFile) {
			return "", nil, contract.NewError(
				contract.ErrorCodeInvalidInput,
				fmt.Sprintf("Missing value for required parameter '%s'", name),
			).WithReason(contract.ReasonInvalidParameter)
		}

		return "", nil, contract.NewErrorWith(contract.ErrorCodeBadRequest, "failed to read multipart form", err)
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, contract.NewErrorWith(contract.ErrorCodeBadRequest, "failed to open "+name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, contract.NewErrorWith(contract.ErrorCodeBadRequest, "failed to read "+name, err)
	}

	return header.Filename, data, nil
}

//nolint:funlen,cyclop,maintidx
func RegisterModelhubServiceRoutes(service *ModelhubService, parser contract.HTTPRequestParser, app fiber.Router) {
	app.Post("/models", func(ctx *fiber.Ctx) error {
		input := &UploadModel{}
		if err := parser.ParseForm(ctx, input); err != nil {
			return err
		}

		filename, artifact, err := formFile(ctx, "file", true)
		if err != nil {
			return err
		}

		_, sample, err := formFile(ctx, "sample", false)
		if err != nil {
			return err
		}

		output, err := service.UploadModel(ctx.UserContext(), accountFrom(ctx), input, filename, artifact, sample)
		if err != nil {
			return err
		}

		return ctx.Status(http.StatusCreated).JSON(output)
	})
	app.Get("/models", func(ctx *fiber.Ctx) error {
		output, err := service.ListModels(ctx.UserContext(), accountFrom(ctx))
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Get("/models/:id", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.GetModel(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Get("/models/:id/signatures", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.ListSignatures(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Post("/models/:id/signatures", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		input := &CreateSignature{}
		if err := parser.ParseBody(ctx, input); err != nil {
			return err
		}

		output, err := service.CreateSignature(ctx.UserContext(), accountFrom(ctx), id, input)
		if err != nil {
			return err
		}

		return ctx.Status(http.StatusCreated).JSON(output)
	})
	app.Get("/signatures/:id", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.GetSignature(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Get("/signatures/:id/lineage", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.GetLineage(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Post("/signatures/:id/predictions", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		input := &CreatePrediction{}
		if err := parser.ParseBody(ctx, input); err != nil {
			return err
		}

		output, err := service.CreatePrediction(ctx.UserContext(), accountFrom(ctx), id, input)
		if err != nil {
			return err
		}

		return ctx.Status(http.StatusCreated).JSON(output)
	})
	app.Get("/signatures/:id/predictions", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		input := &SearchPredictions{}
		if err := parser.ParseQuery(ctx, input); err != nil {
			return err
		}

		output, err := service.SearchPredictions(ctx.UserContext(), accountFrom(ctx), id, input)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Get("/signatures/:id/evaluation", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.Evaluate(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Post("/predict", func(ctx *fiber.Ctx) error {
		input := &Predict{}
		if err := parser.ParseBody(ctx, input); err != nil {
			return err
		}

		output, err := service.Predict(ctx.UserContext(), accountFrom(ctx), input)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Post("/predict/blob", func(ctx *fiber.Ctx) error {
		input := &PredictBlob{}
		if err := parser.ParseForm(ctx, input); err != nil {
			return err
		}

		_, artifact, err := formFile(ctx, "file", true)
		if err != nil {
			return err
		}

		output, err := service.PredictBlob(ctx.UserContext(), accountFrom(ctx), input, artifact)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Get("/predictions/:id", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.GetPrediction(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Patch("/predictions/:id", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		input := &UpdatePrediction{}
		if err := parser.ParseBody(ctx, input); err != nil {
			return err
		}

		output, err := service.UpdatePrediction(ctx.UserContext(), accountFrom(ctx), id, input)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Post("/predictions/:id/targets", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		input := &AttachTarget{}
		if err := parser.ParseBody(ctx, input); err != nil {
			return err
		}

		output, err := service.AttachTarget(ctx.UserContext(), accountFrom(ctx), id, input)
		if err != nil {
			return err
		}

		return ctx.Status(http.StatusCreated).JSON(output)
	})
	app.Get("/predictions/:id/targets", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		output, err := service.ListTargets(ctx.UserContext(), accountFrom(ctx), id)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
	app.Patch("/targets/:id", func(ctx *fiber.Ctx) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}

		input := &UpdateTarget{}
		if err := parser.ParseBody(ctx, input); err != nil {
			return err
		}

		output, err := service.UpdateTarget(ctx.UserContext(), accountFrom(ctx), id, input)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	})
}
